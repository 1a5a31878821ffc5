package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codestream-dev/codestream/model"
)

// Demo synthesizes a small project (or a canned answer in ask mode) from the
// prompt so the relay can be exercised end to end without an LLM provider.
type Demo struct {
	// Delay paces the stream so live rendering is visible; zero disables.
	Delay time.Duration
}

// Generate implements Source.
func (d *Demo) Generate(ctx context.Context, req Request) (<-chan model.Frame, error) {
	var frames []model.Frame
	if req.Mode == model.ModeAsk {
		frames = d.answerFrames(req)
	} else {
		frames = d.fileFrames(req)
	}
	script := &Script{Frames: frames, Delay: d.Delay}
	return script.Generate(ctx, req)
}

func (d *Demo) fileFrames(req Request) []model.Frame {
	var frames []model.Frame

	if req.Mode == model.ModeThink {
		frames = append(frames, model.Frame{
			Type: model.FrameReasoning,
			Reasoning: &model.ReasoningEvent{
				Kind:  model.ReasoningPlanning,
				Items: []string{"sketch a README", "write a main entry point"},
				Text:  "Prompt: " + model.Truncate(req.Prompt, 80),
			},
		})
	}

	readme := fmt.Sprintf("# Generated project\n\nRequested change:\n\n> %s\n", req.Prompt)
	frames = append(frames, openAppendClose("README.md", readme)...)

	if req.Mode == model.ModeThink {
		frames = append(frames, model.Frame{
			Type: model.FrameReasoning,
			Reasoning: &model.ReasoningEvent{
				Kind: model.ReasoningDrafting,
				Text: "drafting main.go",
			},
		})
	}

	mainSrc := fmt.Sprintf("package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(%q)\n}\n",
		model.Truncate(req.Prompt, 60))
	frames = append(frames, openAppendClose("main.go", mainSrc)...)

	if req.Mode == model.ModeThink {
		frames = append(frames, model.Frame{
			Type: model.FrameReasoning,
			Reasoning: &model.ReasoningEvent{
				Kind:   model.ReasoningSummary,
				Output: "README.md\nmain.go",
			},
		})
	}

	frames = append(frames, model.Frame{Type: model.FrameComplete})
	return frames
}

func (d *Demo) answerFrames(req Request) []model.Frame {
	text := fmt.Sprintf("You asked: %s. This demo relay has no model attached; "+
		"wire a real generator.Source to get substantive answers.", req.Prompt)

	frames := []model.Frame{{
		Type:   model.FrameAnswer,
		Answer: &model.AnswerEvent{SessionID: req.SessionID, Event: model.AnswerStart},
	}}
	for _, word := range strings.SplitAfter(text, " ") {
		frames = append(frames, model.Frame{
			Type:   model.FrameAnswer,
			Answer: &model.AnswerEvent{SessionID: req.SessionID, Event: model.AnswerChunk, Text: word},
		})
	}
	frames = append(frames,
		model.Frame{Type: model.FrameAnswer, Answer: &model.AnswerEvent{SessionID: req.SessionID, Event: model.AnswerComplete}},
		model.Frame{Type: model.FrameComplete},
	)
	return frames
}

// openAppendClose emits a file as one open, line-sized appends, one close.
func openAppendClose(path, content string) []model.Frame {
	frames := []model.Frame{{Type: model.FrameFileOpen, Path: path}}
	for _, line := range strings.SplitAfter(content, "\n") {
		if line == "" {
			continue
		}
		frames = append(frames, model.Frame{Type: model.FrameAppend, Text: line})
	}
	frames = append(frames, model.Frame{Type: model.FrameFileClose, Path: path})
	return frames
}
