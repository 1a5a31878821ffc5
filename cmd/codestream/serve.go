package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	codestream "github.com/codestream-dev/codestream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the codestream relay server",
	Long:  "Start the relay server that streams generation frames to clients and archives completed sessions.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load config file into environment (non-destructive).
	loadConfigFileIntoEnv()

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	cfg := codestream.Config{
		ServerAddr:   envOr("CODESTREAM_ADDR", ":7080"),
		DataDir:      envOr("CODESTREAM_DATA_DIR", ""),
		StreamDelay:  envOrDurationDefault("CODESTREAM_STREAM_DELAY", 30*time.Millisecond),
		DatabasePath: envOr("CODESTREAM_DB", ""),
	}

	app, err := codestream.NewBuilder().
		WithConfig(cfg).
		WithLogger(log).
		Build()
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	return app.Start(ctx)
}

// loadConfigFileIntoEnv reads ~/.codestream/config.env and sets any values not
// already present in the environment.
func loadConfigFileIntoEnv() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	path := filepath.Join(home, ".codestream", "config.env")
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envOrDurationDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
