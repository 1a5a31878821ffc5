package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/codestream-dev/codestream/eventbus"
	"github.com/codestream-dev/codestream/model"
	"github.com/codestream-dev/codestream/session"
)

var (
	genMode   string
	genFormat string
	genOut    string
)

var (
	fileStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cancelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
)

var genCmd = &cobra.Command{
	Use:   "gen [prompt]",
	Short: "Generate code from a prompt and watch files arrive",
	Long: `Send a prompt to the relay and reassemble the streamed frames into files.

Modes:
  quick   generate files, no narration (default)
  think   generate files with reasoning narration
  ask     stream a plain-text answer instead of files

Example:
  codestream gen "add rate limiting to the login handler"
  codestream gen "sketch a worker pool" --mode think --out ./generated`,
	Args: cobra.ExactArgs(1),
	RunE: runGen,
}

func init() {
	genCmd.Flags().StringVarP(&genMode, "mode", "m", "quick", "generation mode (quick, think, ask)")
	genCmd.Flags().StringVar(&genFormat, "format", "structured", "wire encoding (structured, legacy)")
	genCmd.Flags().StringVarP(&genOut, "out", "o", "", "directory to write generated files into")
	rootCmd.AddCommand(genCmd)
}

func runGen(cmd *cobra.Command, args []string) error {
	mode := model.Mode(genMode)
	if !model.ValidMode(mode) {
		return fmt.Errorf("invalid mode %q (quick, think, ask)", genMode)
	}
	if genFormat != "structured" && genFormat != "legacy" {
		return fmt.Errorf("invalid format %q (structured, legacy)", genFormat)
	}

	bus := eventbus.NewInMemoryBus()
	ctrl := session.New(session.Config{
		BaseURL:    serverURL,
		LegacyWire: genFormat == "legacy",
	}, bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, cancelStyle.Render("\nCancelling..."))
		ctrl.Cancel()
	}()

	sess, err := ctrl.Start(ctx, args[0], mode)
	if err != nil {
		return fmt.Errorf("starting session: %w\nIs the relay running? Start it with: codestream serve", err)
	}
	fmt.Printf("Session %s started (mode: %s)\n\n", sess.ID, sess.Mode)

	updates := bus.Subscribe(sess.ID)
	defer bus.Unsubscribe(sess.ID, updates)

	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		for u := range updates {
			switch u.Type {
			case model.UpdateFile:
				if u.File.Status == model.FileDone {
					fmt.Printf("%s %s (%d bytes)\n", fileStyle.Render("wrote"), u.File.Path, len(u.File.Content))
				}
			case model.UpdateLog:
				fmt.Println(noteStyle.Render(u.Entry))
			}
		}
	}()

	ctrl.Wait()
	bus.Unsubscribe(sess.ID, updates)
	<-renderDone

	final := ctrl.Session()
	switch final.Status {
	case model.StatusComplete:
		if final.Answer != "" {
			fmt.Printf("\n%s\n%s\n", doneStyle.Render("✓ Answer:"), final.Answer)
		} else {
			fmt.Printf("\n%s %d file(s)\n", doneStyle.Render("✓ Generated"), len(ctrl.FinalFiles()))
		}
	case model.StatusCancelled:
		fmt.Printf("\n%s kept %d partial file(s)\n", cancelStyle.Render("✗ Cancelled,"), len(ctrl.Files()))
	default:
		return fmt.Errorf("%s %s", errStyle.Render("generation failed:"), final.Error)
	}

	if dropped := ctrl.DroppedAppends(); dropped > 0 {
		fmt.Fprintln(os.Stderr, noteStyle.Render(fmt.Sprintf("warning: %d content chunk(s) arrived with no open file", dropped)))
	}

	if genOut != "" && final.Status == model.StatusComplete {
		if err := writeFiles(genOut, ctrl.FinalFiles()); err != nil {
			return fmt.Errorf("writing files: %w", err)
		}
		fmt.Printf("Files written to %s\n", genOut)
	}
	return nil
}

func writeFiles(dir string, files []*model.FileRecord) error {
	for _, f := range files {
		dest := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, []byte(f.Content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
