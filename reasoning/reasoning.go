// Package reasoning renders the narration channel of a generation stream
// into a command log. Display is gated by the session mode, read fresh at
// each emission: only think mode narrates, and events arriving while another
// mode is active are dropped, never queued for replay.
package reasoning

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/model"
)

// Sink receives rendered command-log entries.
type Sink interface {
	Append(entry string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(entry string)

// Append implements Sink.
func (f SinkFunc) Append(entry string) { f(entry) }

// Emitter gates and renders reasoning events. The mode flag may be toggled
// from outside the stream-processing goroutine at any time, so access is
// guarded; entries already rendered are unaffected by later toggles.
type Emitter struct {
	mu      sync.RWMutex
	mode    model.Mode
	dropped int

	sink Sink
	now  func() time.Time
	log  *zap.Logger
}

// New creates an Emitter writing to sink. The initial mode is quick.
func New(sink Sink, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{
		mode: model.ModeQuick,
		sink: sink,
		now:  time.Now,
		log:  log,
	}
}

// SetMode updates the live mode flag.
func (e *Emitter) SetMode(m model.Mode) {
	e.mu.Lock()
	e.mode = m
	e.mu.Unlock()
}

// Mode returns the current mode flag.
func (e *Emitter) Mode() model.Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Dropped returns how many events were discarded by the mode gate.
func (e *Emitter) Dropped() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dropped
}

// Emit renders ev into the command log if the current mode permits narration.
// It returns false when the event was discarded.
func (e *Emitter) Emit(ev *model.ReasoningEvent) bool {
	e.mu.Lock()
	permitted := e.mode == model.ModeThink
	if !permitted {
		e.dropped++
	}
	e.mu.Unlock()

	if !permitted {
		e.log.Debug("reasoning event dropped by mode gate", zap.String("kind", string(ev.Kind)))
		return false
	}
	if e.sink != nil {
		e.sink.Append(e.render(ev))
	}
	return true
}

// render composes one command-log entry: a kind+timestamp header, items as
// bullet lines, then text, then output line by line. Any subset of the
// payload fields may be absent.
func (e *Emitter) render(ev *model.ReasoningEvent) string {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(ev.Kind))
	b.WriteString("] ")
	b.WriteString(ts.Format("15:04:05"))

	for _, item := range ev.Items {
		b.WriteString("\n")
		b.WriteString(bullet(item))
	}
	if ev.Text != "" {
		b.WriteString("\n")
		b.WriteString(ev.Text)
	}
	if ev.Output != "" {
		for _, line := range strings.Split(strings.TrimRight(ev.Output, "\n"), "\n") {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return b.String()
}

// bullet prefixes an item with a list marker unless it already carries one.
func bullet(item string) string {
	trimmed := strings.TrimLeft(item, " \t")
	if hasListMarker(trimmed) {
		return item
	}
	return "- " + item
}

func hasListMarker(s string) bool {
	if s == "" {
		return false
	}
	switch {
	case strings.HasPrefix(s, "- "), strings.HasPrefix(s, "* "), strings.HasPrefix(s, "• "):
		return true
	}
	// Ordered markers like "1. " or "12) ".
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' ' {
		return true
	}
	return false
}
