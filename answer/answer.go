// Package answer tracks text-only sessions: streamed chunks accumulate into
// one growing answer keyed by session ID, independent of file reconstruction.
package answer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/model"
)

// Sink receives displayable answer-session entries: the originating prompt,
// streamed chunks, and terminal text. Rendered entries persist after the
// tracking state for a session is discarded.
type Sink interface {
	AnswerStarted(sessionID, prompt string)
	AnswerChunk(sessionID, chunk string)
	AnswerDone(sessionID, finalText string)
}

// Tracker is the registry of in-flight answer sessions.
type Tracker struct {
	mu     sync.Mutex
	active map[string]*model.AnswerSession

	sink Sink
	log  *zap.Logger
}

// New creates an empty tracker. sink may be nil.
func New(sink Sink, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		active: make(map[string]*model.AnswerSession),
		sink:   sink,
		log:    log,
	}
}

// Start registers a new answer session. Starting an ID already in flight is
// idempotent: it is the same logical session and accumulated text is kept.
// When the originating source was not the command log itself, the prompt is
// recorded as a display entry.
func (t *Tracker) Start(sessionID, prompt string, fromLog bool) {
	t.mu.Lock()
	_, exists := t.active[sessionID]
	if !exists {
		t.active[sessionID] = &model.AnswerSession{
			SessionID: sessionID,
			Status:    model.AnswerStreaming,
		}
	}
	t.mu.Unlock()

	if !exists && !fromLog && t.sink != nil {
		t.sink.AnswerStarted(sessionID, prompt)
	}
}

// Chunk appends text to the session's accumulated answer in arrival order,
// creating the session lazily if no start event was seen.
func (t *Tracker) Chunk(sessionID, text string) {
	t.mu.Lock()
	sess, ok := t.active[sessionID]
	if !ok {
		t.log.Debug("answer chunk before start, creating session", zap.String("session", sessionID))
		sess = &model.AnswerSession{
			SessionID: sessionID,
			Status:    model.AnswerStreaming,
		}
		t.active[sessionID] = sess
	}
	sess.Text += text
	t.mu.Unlock()

	if t.sink != nil {
		t.sink.AnswerChunk(sessionID, text)
	}
}

// Complete marks the session complete and removes it from the registry.
// The returned session carries the final accumulated text.
func (t *Tracker) Complete(sessionID string) *model.AnswerSession {
	sess := t.finish(sessionID, model.AnswerDone, "")
	if sess != nil && t.sink != nil {
		t.sink.AnswerDone(sessionID, sess.Text)
	}
	return sess
}

// Fail marks the session errored, appends the error message to the displayed
// text, and removes the session from the registry.
func (t *Tracker) Fail(sessionID, message string) *model.AnswerSession {
	sess := t.finish(sessionID, model.AnswerFailed, message)
	if sess != nil && t.sink != nil {
		t.sink.AnswerDone(sessionID, sess.Text)
	}
	return sess
}

func (t *Tracker) finish(sessionID string, status model.AnswerStatus, errMsg string) *model.AnswerSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.active[sessionID]
	if !ok {
		t.log.Warn("terminal event for unknown answer session", zap.String("session", sessionID))
		return nil
	}
	sess.Status = status
	if errMsg != "" {
		if sess.Text != "" {
			sess.Text += "\n"
		}
		sess.Text += errMsg
	}
	delete(t.active, sessionID)
	return sess
}

// Apply routes one wire event to the tracker.
func (t *Tracker) Apply(ev *model.AnswerEvent, prompt string) {
	switch ev.Event {
	case model.AnswerStart:
		t.Start(ev.SessionID, prompt, false)
	case model.AnswerChunk:
		t.Chunk(ev.SessionID, ev.Text)
	case model.AnswerComplete:
		t.Complete(ev.SessionID)
	case model.AnswerError:
		t.Fail(ev.SessionID, ev.Text)
	default:
		t.log.Warn("unknown answer event", zap.String("event", string(ev.Event)))
	}
}

// Text returns the accumulated text for an in-flight session, or "".
func (t *Tracker) Text(sessionID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sess, ok := t.active[sessionID]; ok {
		return sess.Text
	}
	return ""
}

// Active returns the number of in-flight answer sessions.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Reset discards all tracking state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.active = make(map[string]*model.AnswerSession)
	t.mu.Unlock()
}
