// Package app wires lfsdesk's components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/adapters/lfs"
	"github.com/brianly1003/lfsdesk/internal/adapters/picker"
	"github.com/brianly1003/lfsdesk/internal/adapters/watcher"
	"github.com/brianly1003/lfsdesk/internal/config"
	"github.com/brianly1003/lfsdesk/internal/domain/ports"
	"github.com/brianly1003/lfsdesk/internal/history"
	"github.com/brianly1003/lfsdesk/internal/hub"
	"github.com/brianly1003/lfsdesk/internal/lfsdesk"
	"github.com/brianly1003/lfsdesk/internal/pending"
	"github.com/brianly1003/lfsdesk/internal/rpc"
	"github.com/brianly1003/lfsdesk/internal/rpc/handler"
	"github.com/brianly1003/lfsdesk/internal/rpc/handler/methods"
	"github.com/brianly1003/lfsdesk/internal/rpc/transport"
	httpserver "github.com/brianly1003/lfsdesk/internal/server/http"
	"github.com/brianly1003/lfsdesk/internal/server/http/middleware"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string

	// stdio transport and prompt picker streams
	stdin    io.Reader
	stdout   io.Writer
	promptIn io.Reader

	adapter ports.LFSAdapter
	picker  ports.FolderPicker

	hub        *hub.Hub
	watcher    *watcher.Watcher
	journal    *history.Journal
	service    *lfsdesk.Service
	tracker    *pending.Tracker
	registry   *handler.Registry
	dispatcher *handler.Dispatcher
	rpcServer  *rpc.Server
	httpServer *httpserver.Server

	startTime time.Time

	mu      sync.RWMutex
	running bool
}

// Option customizes an App.
type Option func(*App)

// WithStdio replaces os.Stdin and os.Stdout for the stdio transport.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.stdin = in
		a.stdout = out
	}
}

// WithPromptInput sets where the prompt picker reads folders from.
func WithPromptInput(in io.Reader) Option {
	return func(a *App) { a.promptIn = in }
}

// WithAdapter replaces the git lfs adapter.
func WithAdapter(adapter ports.LFSAdapter) Option {
	return func(a *App) { a.adapter = adapter }
}

// WithPicker replaces the configured folder picker.
func WithPicker(p ports.FolderPicker) Option {
	return func(a *App) { a.picker = p }
}

// New builds every component from cfg. Nothing runs until Start.
func New(cfg *config.Config, version string, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		version: version,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.adapter == nil {
		a.adapter = lfs.NewAdapter(cfg.LFS.Command)
	}
	if a.picker == nil {
		p, err := a.newPicker()
		if err != nil {
			return nil, err
		}
		a.picker = p
	}

	a.hub = hub.New(hub.WithBufferSize(cfg.Hub.BufferSize))

	if cfg.Watcher.Enabled {
		a.watcher = watcher.NewWatcher(a.hub, cfg.Watcher.DebounceMS, cfg.Watcher.Files...)
	}

	if cfg.History.Enabled {
		journal, err := history.Open(cfg.History.MaxRecords)
		if err != nil {
			return nil, fmt.Errorf("failed to open lock history: %w", err)
		}
		a.journal = journal
	}

	svcOpts := lfsdesk.Options{
		Adapter:     a.adapter,
		Picker:      a.picker,
		Publisher:   a.hub,
		SearchLimit: cfg.Search.MaxResults,
	}
	// Typed nils must not reach the interface fields.
	if a.watcher != nil {
		svcOpts.Watcher = a.watcher
	}
	if a.journal != nil {
		svcOpts.Journal = a.journal
	}
	service, err := lfsdesk.NewService(svcOpts)
	if err != nil {
		return nil, err
	}
	a.service = service
	a.tracker = pending.NewTracker()

	a.registry = a.buildRegistry()
	a.dispatcher = handler.NewDispatcher(a.registry)
	a.rpcServer = rpc.NewServer(a.dispatcher, a.hub)

	return a, nil
}

func (a *App) newPicker() (ports.FolderPicker, error) {
	opts := picker.Options{
		Kind:          a.cfg.Repository.Picker,
		Path:          a.cfg.Repository.Path,
		DialogCommand: a.cfg.Repository.DialogCommand,
	}
	if opts.Kind == config.PickerPrompt {
		in := a.promptIn
		if in == nil {
			// stdin carries the protocol when serving over stdio.
			if a.cfg.Server.Transport == config.TransportStdio {
				tty, err := os.Open("/dev/tty")
				if err != nil {
					return nil, fmt.Errorf("prompt picker needs a terminal: %w", err)
				}
				in = tty
			} else {
				in = os.Stdin
			}
		}
		opts.In = in
		opts.Out = os.Stderr
	}
	return picker.New(opts)
}

func (a *App) buildRegistry() *handler.Registry {
	r := handler.NewRegistry()
	r.Use(handler.Recover())
	r.Use(handler.Logging())

	r.RegisterService(methods.NewLFSService(a.service, a.tracker))
	r.RegisterService(methods.NewSubscriptionService())
	r.RegisterService(methods.NewStatusService(a))

	r.RegisterDiscover(handler.OpenRPCInfo{
		Title:       "lfsdesk",
		Description: "Git LFS lock commands over JSON-RPC 2.0",
		Version:     a.version,
	})
	return r
}

// Start runs the configured transport and blocks until ctx is cancelled or,
// over stdio, until the peer closes its input.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}
	a.hub.Subscribe(hub.NewLogSubscriber("event-log", log.Logger, zerolog.DebugLevel))

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to start repository watcher")
		}
	}

	log.Info().
		Str("version", a.version).
		Str("transport", a.cfg.Server.Transport).
		Str("picker", a.cfg.Repository.Picker).
		Bool("history", a.journal != nil).
		Bool("watcher", a.watcher != nil).
		Msg("lfsdesk started")

	var err error
	switch a.cfg.Server.Transport {
	case config.TransportWebSocket:
		err = a.serveWebSocket(ctx)
	default:
		err = a.serveStdio(ctx)
	}

	if shutdownErr := a.shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}

func (a *App) serveStdio(ctx context.Context) error {
	mode, err := transport.ParseStdioMode(a.cfg.Server.StdioFraming)
	if err != nil {
		return err
	}
	t := transport.NewStdioTransportWithIO(a.stdin, a.stdout, transport.WithStdioMode(mode))

	done := make(chan error, 1)
	go func() { done <- a.rpcServer.ServeTransport(ctx, t) }()

	select {
	case err := <-done:
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			log.Info().Msg("stdio input closed")
			return nil
		}
		return err
	case <-ctx.Done():
		// A read blocked on stdin cannot be interrupted; close and move on.
		_ = t.Close()
		return nil
	}
}

func (a *App) serveWebSocket(ctx context.Context) error {
	a.httpServer = httpserver.New(a.cfg.Server.Addr(), a.rpcServer, a.registry,
		httpserver.WithInfo(httpserver.Info{Name: "lfsdesk", Version: a.version}),
		httpserver.WithRateLimiter(middleware.NewRateLimiter()),
		httpserver.WithDebug(a.cfg.Server.Debug),
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start websocket server: %w", err)
	}

	<-ctx.Done()
	return nil
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	log.Info().Msg("shutting down...")

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("error stopping websocket server")
		}
		cancel()
	} else {
		_ = a.rpcServer.Stop()
	}

	// Deferred commands finish their git calls; their clients may already be gone.
	waitWithTimeout(a.tracker.Wait, 5*time.Second)

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			log.Warn().Err(err).Msg("error stopping repository watcher")
		}
	}

	if err := a.hub.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping event hub")
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing lock history")
		}
	}

	return nil
}

func waitWithTimeout(wait func(), timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("deferred operations still running at shutdown")
	}
}

// Registry returns the method registry.
func (a *App) Registry() *handler.Registry {
	return a.registry
}

// Service returns the lock dispatcher core.
func (a *App) Service() *lfsdesk.Service {
	return a.service
}

// The methods below implement methods.StatusProvider.

// ConnectedClients returns the number of connected clients.
func (a *App) ConnectedClients() int {
	return a.rpcServer.ClientCount()
}

// RepoPath returns the active repository, empty when none is selected.
func (a *App) RepoPath() string {
	return a.service.Status(context.Background()).Path
}

// UptimeSeconds returns how long the app has been running.
func (a *App) UptimeSeconds() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.startTime.IsZero() {
		return 0
	}
	return int64(time.Since(a.startTime).Seconds())
}

// Version returns the build version.
func (a *App) Version() string {
	return a.version
}

// WatcherEnabled reports whether the repository watcher is configured.
func (a *App) WatcherEnabled() bool {
	return a.watcher != nil
}

// HistoryEnabled reports whether the lock history journal is open.
func (a *App) HistoryEnabled() bool {
	return a.journal != nil
}

// PendingOperations returns the number of deferred commands still running.
func (a *App) PendingOperations() int {
	return a.tracker.Len()
}

var _ methods.StatusProvider = (*App)(nil)
