// Package codestream is the top-level entry point for the codestream relay.
//
// Use the Builder to compose a relay application:
//
//	app, err := codestream.NewBuilder().Build()
//	app.Start(ctx)
//
// Or customize components:
//
//	app, err := codestream.NewBuilder().
//	    WithSource(mySource).
//	    WithArchive(myArchive).
//	    Build()
package codestream

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/codestream-dev/codestream/generator"
	"github.com/codestream-dev/codestream/httpapi"
	"github.com/codestream-dev/codestream/store/sqlite"
)

// Config holds top-level configuration for a codestream application.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (default ":7080").
	ServerAddr string

	// DataDir is the directory for persistent data (default "~/.codestream").
	DataDir string

	// DatabasePath is the full path to the SQLite session archive.
	DatabasePath string

	// StreamDelay paces the demo source's frames (default 30ms).
	StreamDelay time.Duration
}

// Builder constructs a codestream App.
type Builder struct {
	config  Config
	source  generator.Source
	archive httpapi.Archive
	store   *sqlite.Store
	log     *zap.Logger
}

// NewBuilder creates a new Builder with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithSource sets the frame source. Defaults to the built-in demo source.
func (b *Builder) WithSource(s generator.Source) *Builder {
	b.source = s
	return b
}

// WithArchive sets the session archive backing the read endpoints.
func (b *Builder) WithArchive(a httpapi.Archive) *Builder {
	b.archive = a
	return b
}

// WithLogger sets the application logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build() (*App, error) {
	if err := applyDefaults(b); err != nil {
		return nil, err
	}

	handler := httpapi.New(b.source, b.archive, b.log.Named("httpapi"))

	return &App{
		config:  b.config,
		handler: handler,
		store:   b.store,
		log:     b.log,
	}, nil
}

// App is a running codestream relay.
type App struct {
	config  Config
	handler *httpapi.Handler
	store   *sqlite.Store
	log     *zap.Logger
}

// Handler returns the HTTP handler for embedding in another server.
func (a *App) Handler() *httpapi.Handler { return a.handler }

// Start runs the HTTP server. Blocks until ctx is done.
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.config.ServerAddr,
		Handler: a.handler.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.log.Info("relay listening", zap.String("addr", a.config.ServerAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
