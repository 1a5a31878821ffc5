// Package session orchestrates one generation session at a time: it issues
// the HTTP request, owns the cancellation handle, and pumps decoded frames
// to the workspace reconstructor, the reasoning emitter, and the answer
// tracker on a single processing goroutine.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/answer"
	"github.com/codestream-dev/codestream/eventbus"
	"github.com/codestream-dev/codestream/format"
	"github.com/codestream-dev/codestream/model"
	"github.com/codestream-dev/codestream/protocol"
	"github.com/codestream-dev/codestream/reasoning"
	"github.com/codestream-dev/codestream/workspace"
)

// ErrRequestFailed marks a transport-level failure (network error or non-2xx
// response). Fatal to the session.
var ErrRequestFailed = errors.New("generation request failed")

// Archiver receives the terminal session and its final formatted file set.
// This is the hand-off point to the editor/build collaborator.
type Archiver interface {
	SaveSession(sess *model.GenerationSession, files []*model.FileRecord) error
}

// Config holds controller configuration.
type Config struct {
	// BaseURL of the relay server, e.g. "http://localhost:7080".
	BaseURL string
	// Client used for the streaming request. Defaults to a client without a
	// timeout; streams are long-lived and are ended by cancellation.
	Client *http.Client
	// Archive receives terminal sessions. Optional.
	Archive Archiver
	// LegacyWire requests the legacy payload encoding from the relay.
	LegacyWire bool
}

// Controller drives generation sessions. It is the single owner of the
// workspace, the reasoning emitter, and the answer tracker; the UI observes
// through the event bus it is constructed with.
type Controller struct {
	cfg Config
	bus eventbus.Bus
	log *zap.Logger

	ws      *workspace.Workspace
	emitter *reasoning.Emitter
	answers *answer.Tracker

	mu      sync.Mutex
	current *model.GenerationSession
	cancel  context.CancelFunc
	done    chan struct{}
	final   []*model.FileRecord
}

// New creates a Controller publishing on bus.
func New(cfg Config, bus eventbus.Bus, log *zap.Logger) *Controller {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{cfg: cfg, bus: bus, log: log}
	c.ws = workspace.New(workspace.ListenerFunc(c.fileChanged), log.Named("workspace"))
	c.emitter = reasoning.New(reasoning.SinkFunc(c.logEntry), log.Named("reasoning"))
	c.answers = answer.New(answerSink{c}, log.Named("answer"))
	return c
}

// Start begins a new generation session for prompt. Any in-flight session is
// cancelled and superseded; its in-memory state is discarded without merging.
// This and Streaming are the only entry points the hosting UI needs.
func (c *Controller) Start(ctx context.Context, prompt string, mode model.Mode) (*model.GenerationSession, error) {
	c.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	sess := &model.GenerationSession{
		ID:        uuid.New().String()[:8],
		Prompt:    prompt,
		Mode:      mode,
		Status:    model.StatusStreaming,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.ws.Reset()
	c.answers.Reset()
	c.final = nil
	c.emitter.SetMode(mode)

	streamCtx, cancel := context.WithCancel(ctx)
	body, err := c.openStream(streamCtx, prompt, mode)
	if err != nil {
		cancel()
		sess.Status = model.StatusError
		sess.Error = err.Error()
		return sess, err
	}

	c.current = sess
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.process(streamCtx, sess, body, c.done)

	c.log.Info("session started",
		zap.String("session", sess.ID),
		zap.String("mode", string(mode)))
	return sess, nil
}

// Streaming reports whether a session is currently streaming.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.Status == model.StatusStreaming
}

// Cancel aborts the in-flight session, if any, and waits for the processing
// goroutine to finish. Already-accumulated file content is preserved exactly
// as last written; no frame received after the abort is processed.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Wait blocks until the current session's processing goroutine exits.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Session returns the most recent session, or nil.
func (c *Controller) Session() *model.GenerationSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	s := *c.current
	return &s
}

// Files returns the live file set (partial content while streaming).
func (c *Controller) Files() []*model.FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Files()
}

// FinalFiles returns the formatted file set of a completed session, or nil.
func (c *Controller) FinalFiles() []*model.FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.final
}

// DroppedAppends exposes the routing-inconsistency counter for appends that
// arrived with no open current file.
func (c *Controller) DroppedAppends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Dropped()
}

// SetMode updates the live narration mode flag mid-session.
func (c *Controller) SetMode(m model.Mode) { c.emitter.SetMode(m) }

// openStream issues the POST and returns the streaming response body.
func (c *Controller) openStream(ctx context.Context, prompt string, mode model.Mode) (io.ReadCloser, error) {
	reqBody, err := json.Marshal(map[string]string{
		"prompt": prompt,
		"mode":   string(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := c.cfg.BaseURL + "/api/generate"
	if c.cfg.LegacyWire {
		url += "?format=legacy"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

// process is the single stream-processing task. Frames are handled strictly
// in arrival order; it suspends only on the next network read.
func (c *Controller) process(ctx context.Context, sess *model.GenerationSession, body io.ReadCloser, done chan struct{}) {
	defer close(done)
	defer body.Close()

	dec := protocol.NewDecoder(body)
	for {
		// A frame already fully received before the abort is still handled,
		// but no new read is issued after cancellation.
		if ctx.Err() != nil {
			c.finish(sess, model.StatusCancelled, "")
			return
		}

		payload, err := dec.Next()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				c.finish(sess, model.StatusCancelled, "")
			case err == io.EOF:
				c.finish(sess, model.StatusError, "stream closed before completion")
			default:
				c.finish(sess, model.StatusError, fmt.Sprintf("reading stream: %v", err))
			}
			return
		}

		frame, err := protocol.ParseFrame(payload)
		if err != nil {
			// Malformed or unknown frames are non-fatal: log and continue.
			c.log.Warn("skipping frame", zap.String("session", sess.ID), zap.Error(err))
			continue
		}

		switch frame.Type {
		case model.FrameFileOpen:
			c.ws.Open(frame.Path)
		case model.FrameAppend:
			c.ws.Append(frame.Text)
		case model.FrameFileClose:
			c.ws.Close(frame.Path)
		case model.FrameReasoning:
			c.emitter.Emit(frame.Reasoning)
		case model.FrameAnswer:
			c.answers.Apply(frame.Answer, sess.Prompt)
		case model.FrameComplete:
			c.finish(sess, model.StatusComplete, "")
			return
		case model.FrameError:
			c.finish(sess, model.StatusError, frame.Message)
			return
		}
	}
}

// finish records the terminal status, formats and hands off the file set on
// completion, and publishes the terminal update. Partial content is never
// rolled back.
func (c *Controller) finish(sess *model.GenerationSession, status model.Status, errMsg string) {
	c.mu.Lock()
	sess.Status = status
	sess.Error = errMsg
	sess.UpdatedAt = time.Now().UTC()

	files := c.ws.Files()
	if status == model.StatusComplete {
		for _, f := range files {
			f.Content = format.Normalize(f.Content)
		}
		c.final = files
	}
	archive := c.cfg.Archive
	c.mu.Unlock()

	if archive != nil {
		if err := archive.SaveSession(sess, files); err != nil {
			c.log.Error("archiving session failed", zap.String("session", sess.ID), zap.Error(err))
		}
	}

	c.log.Info("session finished",
		zap.String("session", sess.ID),
		zap.String("status", string(status)),
		zap.Int("files", len(files)))
	c.publish(&model.Update{Type: model.UpdateStatus, Status: status, Error: errMsg})
}

// --- listener wiring: the editor widget and command log subscribe on the
// bus; the controller is the only component that publishes. ---

func (c *Controller) fileChanged(rec *model.FileRecord) {
	c.publish(&model.Update{Type: model.UpdateFile, File: rec})
}

func (c *Controller) logEntry(entry string) {
	c.publish(&model.Update{Type: model.UpdateLog, Entry: entry})
}

func (c *Controller) publish(u *model.Update) {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()
	if c.bus == nil || sess == nil {
		return
	}
	c.bus.Publish(sess.ID, u)
}

// answerSink feeds answer-session display entries into the command log and
// records the final answer text on the generation session.
type answerSink struct{ c *Controller }

func (s answerSink) AnswerStarted(sessionID, prompt string) {
	s.c.logEntry("> " + prompt)
}

func (s answerSink) AnswerChunk(sessionID, chunk string) {
	s.c.publish(&model.Update{Type: model.UpdateLog, Entry: chunk})
}

func (s answerSink) AnswerDone(sessionID, finalText string) {
	s.c.mu.Lock()
	if s.c.current != nil {
		s.c.current.Answer = finalText
	}
	s.c.mu.Unlock()
}
