package reasoning

import (
	"strings"
	"testing"
	"time"

	"github.com/codestream-dev/codestream/model"
)

type logSink struct {
	entries []string
}

func (s *logSink) Append(entry string) { s.entries = append(s.entries, entry) }

func thinkEmitter(sink Sink) *Emitter {
	e := New(sink, nil)
	e.SetMode(model.ModeThink)
	e.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	return e
}

func TestEmitInThinkMode(t *testing.T) {
	sink := &logSink{}
	e := thinkEmitter(sink)

	ok := e.Emit(&model.ReasoningEvent{
		Kind:  model.ReasoningPlanning,
		Items: []string{"read existing routes", "- already marked"},
		Text:  "starting with the router",
	})
	if !ok {
		t.Fatal("expected event to be displayed")
	}
	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(sink.entries))
	}

	entry := sink.entries[0]
	lines := strings.Split(entry, "\n")
	if lines[0] != "[planning] 09:26:53" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "- read existing routes" {
		t.Fatalf("expected bullet prefix, got %q", lines[1])
	}
	if lines[2] != "- already marked" {
		t.Fatalf("existing marker not preserved: %q", lines[2])
	}
	if lines[3] != "starting with the router" {
		t.Fatalf("unexpected text line: %q", lines[3])
	}
}

func TestEmitOutputLineByLine(t *testing.T) {
	sink := &logSink{}
	e := thinkEmitter(sink)

	e.Emit(&model.ReasoningEvent{
		Kind:   model.ReasoningExecuting,
		Output: "go test ./...\nok\n",
	})

	lines := strings.Split(sink.entries[0], "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 output lines, got %v", lines)
	}
	if lines[1] != "go test ./..." || lines[2] != "ok" {
		t.Fatalf("unexpected output lines: %v", lines[1:])
	}
}

func TestEmitToleratesEmptyPayload(t *testing.T) {
	sink := &logSink{}
	e := thinkEmitter(sink)

	e.Emit(&model.ReasoningEvent{Kind: model.ReasoningSummary})
	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(sink.entries))
	}
	if sink.entries[0] != "[summary] 09:26:53" {
		t.Fatalf("unexpected entry: %q", sink.entries[0])
	}
}

func TestModeGateDropsWithoutBuffering(t *testing.T) {
	sink := &logSink{}
	e := New(sink, nil) // quick mode

	if e.Emit(&model.ReasoningEvent{Kind: model.ReasoningPlanning, Text: "hidden"}) {
		t.Fatal("expected drop in quick mode")
	}
	if e.Dropped() != 1 {
		t.Fatalf("expected dropped counter 1, got %d", e.Dropped())
	}

	// Re-enabling think mode must not replay the dropped event.
	e.SetMode(model.ModeThink)
	if len(sink.entries) != 0 {
		t.Fatalf("dropped event was replayed: %v", sink.entries)
	}
}

func TestToggleMidSessionAffectsOnlyLaterEvents(t *testing.T) {
	sink := &logSink{}
	e := thinkEmitter(sink)

	e.Emit(&model.ReasoningEvent{Kind: model.ReasoningPlanning, Text: "before toggle"})
	e.SetMode(model.ModeQuick)
	e.Emit(&model.ReasoningEvent{Kind: model.ReasoningDrafting, Text: "after toggle"})

	if len(sink.entries) != 1 {
		t.Fatalf("expected exactly the pre-toggle entry, got %d", len(sink.entries))
	}
	if !strings.Contains(sink.entries[0], "before toggle") {
		t.Fatalf("pre-toggle entry altered: %q", sink.entries[0])
	}
}

func TestEventTimestampPreferred(t *testing.T) {
	sink := &logSink{}
	e := thinkEmitter(sink)

	e.Emit(&model.ReasoningEvent{
		Kind:      model.ReasoningUser,
		Timestamp: time.Date(2026, 3, 14, 23, 5, 1, 0, time.UTC),
	})
	if sink.entries[0] != "[user] 23:05:01" {
		t.Fatalf("unexpected entry: %q", sink.entries[0])
	}
}

func TestOrderedListMarkersPreserved(t *testing.T) {
	sink := &logSink{}
	e := thinkEmitter(sink)

	e.Emit(&model.ReasoningEvent{
		Kind:  model.ReasoningResearching,
		Items: []string{"1. first", "2) second", "10. tenth", "plain"},
	})
	lines := strings.Split(sink.entries[0], "\n")
	want := []string{"1. first", "2) second", "10. tenth", "- plain"}
	for i, w := range want {
		if lines[i+1] != w {
			t.Fatalf("item %d: expected %q, got %q", i, w, lines[i+1])
		}
	}
}
