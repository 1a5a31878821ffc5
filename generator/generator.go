// Package generator defines the boundary to whatever produces generation
// frames. The real LLM provider and its model routing live behind the Source
// interface; this package ships a scripted source for tests and a demo source
// for running the relay without a provider.
package generator

import (
	"context"
	"time"

	"github.com/codestream-dev/codestream/model"
)

// Request describes one generation to produce frames for.
type Request struct {
	SessionID string
	Prompt    string
	Mode      model.Mode
}

// Source produces the frame sequence for a request. The returned channel is
// closed when the sequence ends; implementations stop early when ctx is done.
type Source interface {
	Generate(ctx context.Context, req Request) (<-chan model.Frame, error)
}

// Script replays a fixed frame sequence, optionally pacing frames. Useful in
// tests and for replaying recorded sessions.
type Script struct {
	Frames []model.Frame
	// Delay between frames; zero plays back as fast as the consumer reads.
	Delay time.Duration
}

// Generate implements Source.
func (s *Script) Generate(ctx context.Context, _ Request) (<-chan model.Frame, error) {
	out := make(chan model.Frame)
	go func() {
		defer close(out)
		for _, f := range s.Frames {
			if s.Delay > 0 {
				select {
				case <-time.After(s.Delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
