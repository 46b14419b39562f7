// Package app wires all Tartil subsystems into a running service.
//
// The App struct owns the full lifecycle: New builds the storage backend,
// the evaluation engine and the HTTP server from config, Run serves until
// the context is cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithSummaryStore, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tartil-app/tartil/internal/config"
	"github.com/tartil-app/tartil/internal/health"
	"github.com/tartil-app/tartil/internal/hifz"
	hifzpostgres "github.com/tartil-app/tartil/internal/hifz/postgres"
	hifzsqlite "github.com/tartil-app/tartil/internal/hifz/sqlite"
	"github.com/tartil-app/tartil/internal/observe"
	"github.com/tartil-app/tartil/internal/recite"
	"github.com/tartil-app/tartil/internal/server"
	"github.com/tartil-app/tartil/internal/tajweed"
	"github.com/tartil-app/tartil/pkg/provider/asr"
	"github.com/tartil-app/tartil/pkg/provider/pitch"
	"github.com/tartil-app/tartil/pkg/provider/verses"
)

// shutdownGrace bounds the HTTP server drain during Shutdown.
const shutdownGrace = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured; the endpoints that need it answer 503.
// Populated by main.go via the config registry.
type Providers struct {
	Pitch  pitch.Tracker
	ASR    asr.Recognizer
	Verses verses.Source
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	store     hifz.Store
	summaries hifz.SummaryStore
	engine    *recite.Engine
	srv       *http.Server
	listener  net.Listener

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a review store instead of creating one from config.
func WithStore(s hifz.Store) Option {
	return func(a *App) { a.store = s }
}

// WithSummaryStore injects a summary store instead of creating one from config.
func WithSummaryStore(s hifz.SummaryStore) Option {
	return func(a *App) { a.summaries = s }
}

// WithMetrics injects a metrics instance instead of the process-wide default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithListener serves on the given listener instead of binding
// Server.ListenAddr. Lets tests use an ephemeral port.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	a.initEngine()
	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init server: %w", err)
	}

	return a, nil
}

// initStore builds the review and summary stores from the configured backend.
// With no backend configured everything lives in memory.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	switch a.cfg.Storage.Backend {
	case config.StoragePostgres:
		store, err := hifzpostgres.NewStore(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		a.store = store
		if a.summaries == nil {
			a.summaries = store
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		slog.Info("connected review store", "backend", "postgres")

	case config.StorageSQLite:
		store, err := hifzsqlite.NewStore(a.cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		a.store = store
		if a.summaries == nil {
			a.summaries = store
		}
		a.closers = append(a.closers, store.Close)
		slog.Info("opened review store", "backend", "sqlite", "path", a.cfg.Storage.SQLitePath)

	default:
		mem := hifz.NewMemStore()
		a.store = mem
		if a.summaries == nil {
			a.summaries = mem
		}
		slog.Warn("no storage backend configured, keeping reviews in memory")
	}
	return nil
}

// initEngine builds the pitch evaluation engine when a tracker is configured.
// Zero-valued analysis knobs fall back to the package defaults.
func (a *App) initEngine() {
	if a.providers.Pitch == nil {
		slog.Warn("no pitch provider configured, pitch evaluation disabled")
		return
	}

	opts := []recite.Option{}
	if v := a.cfg.Analysis.SilenceThreshold; v > 0 {
		opts = append(opts, recite.WithSilenceThreshold(v))
	}
	if v := a.cfg.Analysis.SegmentIntervalSeconds; v > 0 {
		opts = append(opts, recite.WithSegmentInterval(v))
	}
	if v := a.cfg.Analysis.PitchThresholdHz; v > 0 {
		opts = append(opts, recite.WithPitchThreshold(v))
	}
	if v := a.cfg.Analysis.Concurrency; v > 0 {
		opts = append(opts, recite.WithConcurrency(v))
	}
	a.engine = recite.New(a.providers.Pitch, opts...)
}

// initServer assembles the HTTP server around the evaluation endpoints.
func (a *App) initServer() error {
	validator := tajweed.NewValidator(tajweed.DefaultRules())

	opts := []server.Option{
		server.WithMetrics(a.metrics),
		server.WithScheduler(hifz.NewScheduler(a.store)),
		server.WithSummaryStore(a.summaries),
	}
	if a.engine != nil {
		opts = append(opts, server.WithEngine(a.engine))
	}
	if a.providers.ASR != nil {
		opts = append(opts, server.WithRecognizer(a.providers.ASR))
	} else {
		slog.Warn("no ASR provider configured, memorization checks disabled")
	}
	if a.providers.Verses != nil {
		opts = append(opts, server.WithVerses(a.providers.Verses))
	} else {
		slog.Warn("no verse source configured")
	}
	if v := a.cfg.Analysis.MinSimilarity; v > 0 {
		opts = append(opts, server.WithMinSimilarity(v))
	}
	if a.cfg.Review.MinQuality != 0 || a.cfg.Review.MaxQuality != 0 {
		opts = append(opts, server.WithQualityBounds(a.cfg.Review.MinQuality, a.cfg.Review.MaxQuality))
	}
	if pg, ok := a.store.(*hifzpostgres.Store); ok {
		opts = append(opts, server.WithReadyCheck(health.Checker{
			Name:  "postgres",
			Check: pg.Ping,
		}))
	}

	a.srv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           server.New(validator, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Addr returns the address the server is listening on. Only meaningful after
// Run has started with an injected listener.
func (a *App) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.cfg.Server.ListenAddr
}

// Run serves HTTP until ctx is cancelled or the server fails. On
// cancellation the server drains in-flight requests before returning.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		switch {
		case a.listener != nil:
			err = a.srv.Serve(a.listener)
		case a.cfg.Server.TLS != nil:
			err = a.srv.ListenAndServeTLS(a.cfg.Server.TLS.CertFile, a.cfg.Server.TLS.KeyFile)
		default:
			err = a.srv.ListenAndServe()
		}
		errCh <- err
	}()

	slog.Info("serving", "addr", a.Addr(), "tls", a.cfg.Server.TLS != nil)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.srv.Shutdown(drainCtx); err != nil {
			slog.Warn("server drain incomplete", "err", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.srv.Shutdown(ctx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
