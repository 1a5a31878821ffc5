package httpapi

import (
	"time"

	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/format"
	"github.com/codestream-dev/codestream/generator"
	"github.com/codestream-dev/codestream/model"
	"github.com/codestream-dev/codestream/workspace"
)

// Saver is the write side of the archive. When the configured Archive also
// implements Saver, the relay records every terminal session so the listing
// endpoints have data without a separate ingestion path.
type Saver interface {
	SaveSession(sess *model.GenerationSession, files []*model.FileRecord) error
}

// recorder shadows one streamed session server-side: it reconstructs the file
// set from the frames as they go out and persists the terminal result.
type recorder struct {
	sess   *model.GenerationSession
	ws     *workspace.Workspace
	answer string
	saver  Saver
	log    *zap.Logger
	saved  bool
}

func newRecorder(req generator.Request, saver Saver, log *zap.Logger) *recorder {
	now := time.Now().UTC()
	return &recorder{
		sess: &model.GenerationSession{
			ID:        req.SessionID,
			Prompt:    req.Prompt,
			Mode:      req.Mode,
			Status:    model.StatusStreaming,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ws:    workspace.New(nil, log),
		saver: saver,
		log:   log,
	}
}

// observe routes one outgoing frame into the shadow state.
func (r *recorder) observe(f *model.Frame) {
	switch f.Type {
	case model.FrameFileOpen:
		r.ws.Open(f.Path)
	case model.FrameAppend:
		r.ws.Append(f.Text)
	case model.FrameFileClose:
		r.ws.Close(f.Path)
	case model.FrameAnswer:
		if f.Answer != nil && f.Answer.Event == model.AnswerChunk {
			r.answer += f.Answer.Text
		}
	case model.FrameComplete:
		r.finish(model.StatusComplete, "")
	case model.FrameError:
		r.finish(model.StatusError, f.Message)
	}
}

// abort records a session whose client went away before a terminal frame.
func (r *recorder) abort() {
	r.finish(model.StatusCancelled, "")
}

func (r *recorder) finish(status model.Status, errMsg string) {
	if r.saved {
		return
	}
	r.saved = true
	r.sess.Status = status
	r.sess.Error = errMsg
	r.sess.UpdatedAt = time.Now().UTC()

	files := r.ws.Files()
	if status == model.StatusComplete {
		for _, f := range files {
			f.Content = format.Normalize(f.Content)
		}
		r.sess.Answer = r.answer
	}

	if err := r.saver.SaveSession(r.sess, files); err != nil {
		r.log.Error("recording session failed",
			zap.String("session", r.sess.ID), zap.Error(err))
	}
}
