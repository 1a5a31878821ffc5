// Package workspace owns the set of files being reconstructed from a
// generation stream. It tracks which single file is current for append
// routing and enforces the monotonic writing → done status transition.
package workspace

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/model"
)

// Listener observes file record changes so an editor widget can render
// partially-written files live. Records passed to the listener are clones;
// the listener may keep them.
type Listener interface {
	FileChanged(rec *model.FileRecord)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(rec *model.FileRecord)

// FileChanged implements Listener.
func (f ListenerFunc) FileChanged(rec *model.FileRecord) { f(rec) }

// Workspace reconstructs the file set for one active session. Mutations
// arrive on the session's single processing goroutine while the snapshot
// accessors may be called from any goroutine, so all state is guarded by an
// internal mutex; accessors return clones and the listener receives clones.
type Workspace struct {
	mu       sync.Mutex
	records  map[string]*model.FileRecord
	order    []string // paths in first-open order
	current  string
	dropped  int
	listener Listener
	log      *zap.Logger
}

// New creates an empty workspace. listener may be nil.
func New(listener Listener, log *zap.Logger) *Workspace {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workspace{
		records:  make(map[string]*model.FileRecord),
		listener: listener,
		log:      log,
	}
}

// Open creates a record for path on first sight and makes it current.
// Re-opening an already-open path is idempotent and does not reset content.
func (w *Workspace) Open(path string) {
	w.mu.Lock()
	rec, ok := w.records[path]
	if !ok {
		rec = &model.FileRecord{
			Path:     path,
			Status:   model.FileWriting,
			Language: model.LanguageForPath(path),
		}
		w.records[path] = rec
		w.order = append(w.order, path)
	}
	w.current = path
	snap := rec.Clone()
	w.mu.Unlock()

	w.notify(snap)
}

// Append routes text to the current file. Appends arriving with no open
// current path, or after the current record is done, are dropped; the drop is
// counted and logged so the condition stays detectable.
func (w *Workspace) Append(text string) {
	w.mu.Lock()
	rec, ok := w.records[w.current]
	if w.current == "" || !ok || rec.Status != model.FileWriting {
		w.dropped++
		current, dropped := w.current, w.dropped
		w.mu.Unlock()
		w.log.Warn("append with no writable current file dropped",
			zap.String("current", current),
			zap.Int("dropped_total", dropped),
			zap.Int("text_len", len(text)))
		return
	}
	rec.Content += text
	snap := rec.Clone()
	w.mu.Unlock()

	w.notify(snap)
}

// Close marks the record for path as done. Closing an already-closed path is
// a no-op; closing an unknown path is logged and ignored. If the closed path
// was current, the most recently opened still-writing file becomes current.
func (w *Workspace) Close(path string) {
	w.mu.Lock()
	rec, ok := w.records[path]
	if !ok {
		w.mu.Unlock()
		w.log.Warn("close for unknown path ignored", zap.String("path", path))
		return
	}
	if rec.Status == model.FileDone {
		w.mu.Unlock()
		return
	}
	rec.Status = model.FileDone
	if w.current == path {
		w.current = w.lastWriting()
	}
	snap := rec.Clone()
	w.mu.Unlock()

	w.notify(snap)
}

// lastWriting returns the most recently opened path still in writing state,
// or "" when none remains. Caller holds w.mu.
func (w *Workspace) lastWriting() string {
	for i := len(w.order) - 1; i >= 0; i-- {
		if rec := w.records[w.order[i]]; rec.Status == model.FileWriting {
			return w.order[i]
		}
	}
	return ""
}

// Current returns the path appends are routed to, or "".
func (w *Workspace) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Dropped returns how many appends arrived with no writable current file.
func (w *Workspace) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Get returns a copy of the record for path, or nil.
func (w *Workspace) Get(path string) *model.FileRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := w.records[path]
	if !ok {
		return nil
	}
	return rec.Clone()
}

// Files returns copies of all records sorted by path.
func (w *Workspace) Files() []*model.FileRecord {
	w.mu.Lock()
	out := make([]*model.FileRecord, 0, len(w.records))
	for _, rec := range w.records {
		out = append(out, rec.Clone())
	}
	w.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of files in the workspace.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}

// Reset discards all state. A new session supersedes the previous one's
// in-memory file set; records are never deleted mid-session.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = make(map[string]*model.FileRecord)
	w.order = nil
	w.current = ""
	w.dropped = 0
}

func (w *Workspace) notify(rec *model.FileRecord) {
	if w.listener != nil {
		w.listener.FileChanged(rec.Clone())
	}
}
