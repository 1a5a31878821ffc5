package protocol

import (
	"errors"
	"testing"

	"github.com/codestream-dev/codestream/model"
)

func TestParseLegacyFrames(t *testing.T) {
	cases := []struct {
		payload string
		want    model.Frame
	}{
		{"FILE_OPEN src/app.ts", model.Frame{Type: model.FrameFileOpen, Path: "src/app.ts"}},
		{"APPEND const x = 1;", model.Frame{Type: model.FrameAppend, Text: "const x = 1;"}},
		{`APPEND line one\nline two\n`, model.Frame{Type: model.FrameAppend, Text: "line one\nline two\n"}},
		{"FILE_CLOSE src/app.ts", model.Frame{Type: model.FrameFileClose, Path: "src/app.ts"}},
		{"COMPLETE", model.Frame{Type: model.FrameComplete}},
		{"ERROR model overloaded", model.Frame{Type: model.FrameError, Message: "model overloaded"}},
	}
	for _, c := range cases {
		got, err := ParseFrame(c.payload)
		if err != nil {
			t.Fatalf("ParseFrame(%q): %v", c.payload, err)
		}
		if got.Type != c.want.Type || got.Path != c.want.Path || got.Text != c.want.Text || got.Message != c.want.Message {
			t.Fatalf("ParseFrame(%q) = %+v, want %+v", c.payload, got, c.want)
		}
	}
}

func TestParseLegacyAppendNotSpaceSplit(t *testing.T) {
	got, err := ParseFrame("APPEND a b   c d")
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.Text != "a b   c d" {
		t.Fatalf("append text mangled: %q", got.Text)
	}
}

func TestParseStructuredFrames(t *testing.T) {
	got, err := ParseFrame(`{"type":"FILE_OPEN","path":"main.go"}`)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.Type != model.FrameFileOpen || got.Path != "main.go" {
		t.Fatalf("unexpected frame: %+v", got)
	}

	got, err = ParseFrame(`{"type":"APPEND","text":"package main\n"}`)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.Text != "package main\n" {
		t.Fatalf("unexpected text: %q", got.Text)
	}

	got, err = ParseFrame(`{"type":"ERROR","message":"boom"}`)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.Message != "boom" {
		t.Fatalf("unexpected message: %q", got.Message)
	}
}

func TestParseStructuredReasoning(t *testing.T) {
	payload := `{"type":"REASONING","reasoning":{"kind":"planning","items":["read docs","sketch api"],"text":"starting"}}`
	got, err := ParseFrame(payload)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.Type != model.FrameReasoning || got.Reasoning == nil {
		t.Fatalf("unexpected frame: %+v", got)
	}
	if got.Reasoning.Kind != model.ReasoningPlanning || len(got.Reasoning.Items) != 2 {
		t.Fatalf("unexpected reasoning payload: %+v", got.Reasoning)
	}
}

func TestParseStructuredAnswer(t *testing.T) {
	payload := `{"type":"ANSWER","answer":{"session_id":"ans-1","event":"chunk","text":"hello"}}`
	got, err := ParseFrame(payload)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.Type != model.FrameAnswer || got.Answer == nil {
		t.Fatalf("unexpected frame: %+v", got)
	}
	if got.Answer.SessionID != "ans-1" || got.Answer.Event != model.AnswerChunk || got.Answer.Text != "hello" {
		t.Fatalf("unexpected answer payload: %+v", got.Answer)
	}
}

func TestParseMalformedIsSkippable(t *testing.T) {
	for _, payload := range []string{
		// broken JSON
		`{"type":"FILE_OPEN","path":`,
		// unknown structured type
		`{"type":"SHRUG"}`,
		// unknown legacy verb
		"NOT_A_VERB whatever",
		// missing path
		`{"type":"FILE_OPEN"}`,
		// missing session id
		`{"type":"ANSWER","answer":{"event":"chunk"}}`,
	} {
		_, err := ParseFrame(payload)
		if err == nil {
			t.Fatalf("expected error for %q", payload)
		}
		if !errors.Is(err, ErrSkipFrame) {
			t.Fatalf("expected skippable error for %q, got %v", payload, err)
		}
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	frames := []*model.Frame{
		{Type: model.FrameFileOpen, Path: "a/b.ts"},
		{Type: model.FrameAppend, Text: "const x=1;\nconst y=2;\n"},
		{Type: model.FrameAppend, Text: `backslash \n literal`},
		{Type: model.FrameFileClose, Path: "a/b.ts"},
		{Type: model.FrameComplete},
		{Type: model.FrameError, Message: "out of tokens"},
	}
	for _, f := range frames {
		enc, err := EncodeLegacy(f)
		if err != nil {
			t.Fatalf("EncodeLegacy(%+v): %v", f, err)
		}
		got, err := ParseFrame(enc)
		if err != nil {
			t.Fatalf("ParseFrame(%q): %v", enc, err)
		}
		if got.Type != f.Type || got.Path != f.Path || got.Text != f.Text || got.Message != f.Message {
			t.Fatalf("round trip changed frame: %+v -> %+v", f, got)
		}
	}
}

func TestStructuredRoundTrip(t *testing.T) {
	frames := []*model.Frame{
		{Type: model.FrameFileOpen, Path: "x.go"},
		{Type: model.FrameAppend, Text: "line\nwith\nnewlines"},
		{Type: model.FrameReasoning, Reasoning: &model.ReasoningEvent{Kind: model.ReasoningSummary, Output: "done"}},
		{Type: model.FrameAnswer, Answer: &model.AnswerEvent{SessionID: "s1", Event: model.AnswerStart}},
	}
	for _, f := range frames {
		enc, err := EncodeStructured(f)
		if err != nil {
			t.Fatalf("EncodeStructured: %v", err)
		}
		got, err := ParseFrame(enc)
		if err != nil {
			t.Fatalf("ParseFrame(%q): %v", enc, err)
		}
		if got.Type != f.Type || got.Path != f.Path || got.Text != f.Text {
			t.Fatalf("round trip changed frame: %+v -> %+v", f, got)
		}
	}
}

func TestEncodeLegacyRejectsModernFrames(t *testing.T) {
	_, err := EncodeLegacy(&model.Frame{Type: model.FrameReasoning, Reasoning: &model.ReasoningEvent{Kind: model.ReasoningUser}})
	if err == nil {
		t.Fatal("expected error encoding REASONING as legacy")
	}
}

func TestWriteFrame(t *testing.T) {
	got, err := WriteFrame(&model.Frame{Type: model.FrameComplete}, true)
	if err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if got != "data: COMPLETE\n\n" {
		t.Fatalf("unexpected wire event: %q", got)
	}
}
