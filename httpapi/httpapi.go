// Package httpapi provides the relay server: it accepts generation requests
// and streams protocol frames from the configured source to the client.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/generator"
	"github.com/codestream-dev/codestream/model"
	"github.com/codestream-dev/codestream/protocol"
)

const maxPromptRunes = 10000

// Archive is the optional read side for the sessions listing endpoints.
type Archive interface {
	GetSession(id string) (*model.GenerationSession, error)
	GetFiles(sessionID string) ([]*model.FileRecord, error)
	ListSessions() ([]*model.GenerationSession, error)
}

// Handler provides the relay HTTP API.
type Handler struct {
	source  generator.Source
	archive Archive
	log     *zap.Logger
	router  chi.Router
}

// New creates a relay handler streaming frames from source. archive may be
// nil; the sessions endpoints then return 404.
func New(source generator.Source, archive Archive, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{source: source, archive: archive, log: log}
	h.router = h.buildRouter()
	return h
}

// Router returns the HTTP router.
func (h *Handler) Router() chi.Router {
	return h.router
}

func (h *Handler) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/sessions", h.handleListSessions)
			r.Get("/sessions/{id}", h.handleGetSession)
			r.Get("/sessions/{id}/files", h.handleGetFiles)
		})
		// The generate stream is long-lived and must not be cut by a timeout.
		r.Post("/generate", h.handleGenerate)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type generateRequest struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

// handleGenerate validates the request and streams the frame sequence as
// data: lines, flushing after every frame so clients render live. The
// ?format=legacy query selects the verb-prefixed payload encoding.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if len([]rune(req.Prompt)) > maxPromptRunes {
		writeError(w, http.StatusBadRequest, "prompt exceeds 10000 characters")
		return
	}

	mode := model.Mode(req.Mode)
	if mode == "" {
		mode = model.ModeQuick
	}
	if !model.ValidMode(mode) {
		writeError(w, http.StatusBadRequest, "mode must be 'quick', 'think' or 'ask'")
		return
	}

	legacy := r.URL.Query().Get("format") == "legacy"

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	genReq := generator.Request{
		SessionID: uuid.New().String()[:8],
		Prompt:    req.Prompt,
		Mode:      mode,
	}
	frames, err := h.source.Generate(r.Context(), genReq)
	if err != nil {
		h.log.Error("starting generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start generation")
		return
	}

	var rec *recorder
	if saver, ok := h.archive.(Saver); ok {
		rec = newRecorder(genReq, saver, h.log.Named("recorder"))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.log.Info("streaming session",
		zap.String("session", genReq.SessionID),
		zap.String("mode", string(mode)),
		zap.Bool("legacy", legacy))

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			if rec != nil {
				rec.abort()
			}
			return
		case frame, ok := <-frames:
			if !ok {
				if rec != nil {
					rec.abort()
				}
				return
			}
			if rec != nil {
				rec.observe(&frame)
			}
			if err := h.writeFrame(w, &frame, legacy); err != nil {
				continue
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) writeFrame(w http.ResponseWriter, frame *model.Frame, legacy bool) error {
	event, err := protocol.WriteFrame(frame, legacy)
	if err != nil {
		// Frames the requested encoding cannot carry are dropped, not fatal.
		h.log.Warn("dropping unencodable frame",
			zap.String("type", string(frame.Type)), zap.Error(err))
		return err
	}
	_, err = w.Write([]byte(event))
	return err
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "no session archive configured")
		return
	}
	sessions, err := h.archive.ListSessions()
	if err != nil {
		h.log.Error("listing sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*model.GenerationSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "no session archive configured")
		return
	}
	id := chi.URLParam(r, "id")
	sess, err := h.archive.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleGetFiles(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "no session archive configured")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.archive.GetSession(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	files, err := h.archive.GetFiles(id)
	if err != nil {
		h.log.Error("loading files failed", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load files")
		return
	}
	if files == nil {
		files = []*model.FileRecord{}
	}
	writeJSON(w, http.StatusOK, files)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
