package codestream

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/generator"
	"github.com/codestream-dev/codestream/store/sqlite"
)

// applyDefaults fills in missing fields on the builder with sensible defaults.
func applyDefaults(b *Builder) error {
	if b.config.ServerAddr == "" {
		b.config.ServerAddr = ":7080"
	}
	if b.config.DataDir == "" {
		b.config.DataDir = defaultDataDir()
	}
	if b.config.DatabasePath == "" {
		b.config.DatabasePath = filepath.Join(b.config.DataDir, "codestream.db")
	}
	if b.config.StreamDelay == 0 {
		b.config.StreamDelay = 30 * time.Millisecond
	}

	if err := os.MkdirAll(b.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if b.log == nil {
		log, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		b.log = log
	}

	// Session archive.
	if b.archive == nil {
		st, err := sqlite.New(b.config.DatabasePath)
		if err != nil {
			return fmt.Errorf("initializing archive: %w", err)
		}
		b.store = st
		b.archive = st
	}

	// Frame source. Without a provider wired in, the demo source keeps the
	// relay usable end to end.
	if b.source == nil {
		b.source = &generator.Demo{Delay: b.config.StreamDelay}
	}

	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codestream"
	}
	return filepath.Join(home, ".codestream")
}
