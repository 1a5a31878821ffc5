package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codestream-dev/codestream/model"
)

// ErrSkipFrame marks a payload that must be skipped without terminating the
// session: malformed JSON, unknown verbs, unknown structured types.
var ErrSkipFrame = errors.New("skip frame")

// legacy verb prefixes. COMPLETE has no argument.
const (
	verbFileOpen  = "FILE_OPEN "
	verbAppend    = "APPEND "
	verbFileClose = "FILE_CLOSE "
	verbComplete  = "COMPLETE"
	verbError     = "ERROR "
)

// ParseFrame interprets one raw payload string in either wire format.
// Structured payloads are JSON objects carrying a "type" discriminator;
// anything else is treated as a legacy verb-prefixed line. A nil frame with
// an error wrapping ErrSkipFrame means the payload is malformed or unknown
// and processing should continue with the next frame.
func ParseFrame(payload string) (*model.Frame, error) {
	if strings.HasPrefix(strings.TrimSpace(payload), "{") {
		return parseStructured(payload)
	}
	return parseLegacy(payload)
}

func parseStructured(payload string) (*model.Frame, error) {
	var f model.Frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON payload: %v", ErrSkipFrame, err)
	}
	switch f.Type {
	case model.FrameFileOpen, model.FrameFileClose:
		if f.Path == "" {
			return nil, fmt.Errorf("%w: %s without path", ErrSkipFrame, f.Type)
		}
	case model.FrameAppend, model.FrameComplete, model.FrameError:
	case model.FrameReasoning:
		if f.Reasoning == nil {
			return nil, fmt.Errorf("%w: REASONING without payload", ErrSkipFrame)
		}
	case model.FrameAnswer:
		if f.Answer == nil || f.Answer.SessionID == "" {
			return nil, fmt.Errorf("%w: ANSWER without session id", ErrSkipFrame)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrSkipFrame, f.Type)
	}
	return &f, nil
}

func parseLegacy(payload string) (*model.Frame, error) {
	switch {
	case strings.HasPrefix(payload, verbFileOpen):
		return &model.Frame{Type: model.FrameFileOpen, Path: strings.TrimPrefix(payload, verbFileOpen)}, nil
	case strings.HasPrefix(payload, verbAppend):
		// The remainder of the line is the append text, not space-split
		// further. Newlines ride the line-oriented transport escaped.
		return &model.Frame{Type: model.FrameAppend, Text: unescapeLegacy(strings.TrimPrefix(payload, verbAppend))}, nil
	case strings.HasPrefix(payload, verbFileClose):
		return &model.Frame{Type: model.FrameFileClose, Path: strings.TrimPrefix(payload, verbFileClose)}, nil
	case payload == verbComplete:
		return &model.Frame{Type: model.FrameComplete}, nil
	case strings.HasPrefix(payload, verbError):
		return &model.Frame{Type: model.FrameError, Message: strings.TrimPrefix(payload, verbError)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown verb in %q", ErrSkipFrame, model.Truncate(payload, 60))
	}
}

// EncodeStructured renders a frame as its JSON payload.
func EncodeStructured(f *model.Frame) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encoding frame: %w", err)
	}
	return string(data), nil
}

// EncodeLegacy renders a frame as a legacy verb-prefixed line. Reasoning and
// answer frames postdate the legacy format and cannot be carried by it.
func EncodeLegacy(f *model.Frame) (string, error) {
	switch f.Type {
	case model.FrameFileOpen:
		return verbFileOpen + f.Path, nil
	case model.FrameAppend:
		return verbAppend + escapeLegacy(f.Text), nil
	case model.FrameFileClose:
		return verbFileClose + f.Path, nil
	case model.FrameComplete:
		return verbComplete, nil
	case model.FrameError:
		return verbError + f.Message, nil
	default:
		return "", fmt.Errorf("frame type %q has no legacy encoding", f.Type)
	}
}

var legacyEscaper = strings.NewReplacer("\\", `\\`, "\n", `\n`, "\r", `\r`)

func escapeLegacy(s string) string {
	return legacyEscaper.Replace(s)
}

func unescapeLegacy(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// WriteFrame formats a frame as one wire event ("data: <payload>\n\n") in the
// given encoding.
func WriteFrame(f *model.Frame, legacy bool) (string, error) {
	var payload string
	var err error
	if legacy {
		payload, err = EncodeLegacy(f)
	} else {
		payload, err = EncodeStructured(f)
	}
	if err != nil {
		return "", err
	}
	return dataMarker + payload + "\n\n", nil
}
