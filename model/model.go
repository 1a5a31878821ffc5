// Package model defines the core domain types shared across all CodeStream
// packages. It has zero dependencies on other CodeStream packages.
package model

import (
	"path"
	"strings"
	"time"
)

// Status represents the current state of a generation session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. Once a session reaches a
// terminal status no further frames are processed.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// Mode represents the session interaction mode.
type Mode string

const (
	// ModeQuick generates files without narration.
	ModeQuick Mode = "quick"
	// ModeThink generates files and narrates reasoning into the command log.
	ModeThink Mode = "think"
	// ModeAsk streams a plain-text answer instead of files.
	ModeAsk Mode = "ask"
)

// ValidMode reports whether m names a known mode.
func ValidMode(m Mode) bool {
	switch m {
	case ModeQuick, ModeThink, ModeAsk:
		return true
	}
	return false
}

// FrameType discriminates the protocol frame union.
type FrameType string

const (
	FrameFileOpen  FrameType = "FILE_OPEN"
	FrameAppend    FrameType = "APPEND"
	FrameFileClose FrameType = "FILE_CLOSE"
	FrameComplete  FrameType = "COMPLETE"
	FrameError     FrameType = "ERROR"
	// FrameReasoning carries a narration event for the command log.
	// Structured encoding only.
	FrameReasoning FrameType = "REASONING"
	// FrameAnswer carries an answer-mode lifecycle event. Structured only.
	FrameAnswer FrameType = "ANSWER"
)

// Frame is one decoded protocol message. Type selects which of the optional
// fields are meaningful; downstream logic is wire-format agnostic.
type Frame struct {
	Type      FrameType       `json:"type"`
	Path      string          `json:"path,omitempty"`
	Text      string          `json:"text,omitempty"`
	Message   string          `json:"message,omitempty"`
	Reasoning *ReasoningEvent `json:"reasoning,omitempty"`
	Answer    *AnswerEvent    `json:"answer,omitempty"`
}

// FileStatus represents the lifecycle of a streamed file. The transition is
// monotonic: writing → done, never reversed.
type FileStatus string

const (
	FileWriting FileStatus = "writing"
	FileDone    FileStatus = "done"
)

// FileRecord is one file being reconstructed from the stream, keyed by path
// within a session. Content only grows while writing and is immutable once
// done.
type FileRecord struct {
	Path     string     `json:"path"`
	Content  string     `json:"content"`
	Status   FileStatus `json:"status"`
	Language string     `json:"language"`
}

// Clone returns a copy safe to hand to listeners while the original keeps
// mutating.
func (f *FileRecord) Clone() *FileRecord {
	c := *f
	return &c
}

// GenerationSession identifies one streaming generation request.
type GenerationSession struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Mode      Mode      `json:"mode"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Answer    string    `json:"answer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReasoningKind classifies a narration event.
type ReasoningKind string

const (
	ReasoningPlanning    ReasoningKind = "planning"
	ReasoningResearching ReasoningKind = "researching"
	ReasoningExecuting   ReasoningKind = "executing"
	ReasoningDrafting    ReasoningKind = "drafting"
	ReasoningUser        ReasoningKind = "user"
	ReasoningSummary     ReasoningKind = "summary"
)

// ReasoningEvent is one entry of the narration channel. Any subset of Items,
// Text and Output may be present.
type ReasoningEvent struct {
	Kind      ReasoningKind `json:"kind"`
	Items     []string      `json:"items,omitempty"`
	Text      string        `json:"text,omitempty"`
	Output    string        `json:"output,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
}

// AnswerEventType is the lifecycle verb of an answer-mode event.
type AnswerEventType string

const (
	AnswerStart    AnswerEventType = "start"
	AnswerChunk    AnswerEventType = "chunk"
	AnswerComplete AnswerEventType = "complete"
	AnswerError    AnswerEventType = "error"
)

// AnswerEvent is one answer-mode wire event, keyed by its own session ID
// (independent of the generation session identity).
type AnswerEvent struct {
	SessionID string          `json:"session_id"`
	Event     AnswerEventType `json:"event"`
	Text      string          `json:"text,omitempty"`
}

// AnswerStatus represents the state of an answer-mode session.
type AnswerStatus string

const (
	AnswerStreaming AnswerStatus = "streaming"
	AnswerDone      AnswerStatus = "complete"
	AnswerFailed    AnswerStatus = "error"
)

// AnswerSession accumulates streamed answer text for one session ID. Text is
// the ordered concatenation of every chunk received for that ID.
type AnswerSession struct {
	SessionID string       `json:"session_id"`
	Text      string       `json:"text"`
	Status    AnswerStatus `json:"status"`
}

// Update is the payload published on the event bus so the editor widget and
// the command log are explicit listeners rather than ambient lookups.
type Update struct {
	Type   UpdateType  `json:"type"`
	File   *FileRecord `json:"file,omitempty"`
	Entry  string      `json:"entry,omitempty"`
	Status Status      `json:"status,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// UpdateType discriminates bus payloads.
type UpdateType string

const (
	UpdateFile   UpdateType = "file"
	UpdateLog    UpdateType = "log"
	UpdateStatus UpdateType = "status"
)

// languages maps file extensions to editor language identifiers.
var languages = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".tsx":   "typescriptreact",
	".js":    "javascript",
	".jsx":   "javascriptreact",
	".py":    "python",
	".rs":    "rust",
	".rb":    "ruby",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cs":    "csharp",
	".css":   "css",
	".scss":  "scss",
	".html":  "html",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".sh":    "shellscript",
	".sql":   "sql",
	".proto": "proto",
}

// LanguageForPath derives the editor language from a file path extension,
// defaulting to plain text for unknown extensions.
func LanguageForPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if lang, ok := languages[ext]; ok {
		return lang
	}
	return "plaintext"
}

// Truncate shortens a string to maxLen runes, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		r := []rune(s)
		if len(r) <= maxLen {
			return s
		}
		return string(r[:maxLen])
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
