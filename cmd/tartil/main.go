// Command tartil is the main entry point for the Tartil recitation
// evaluation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tartil-app/tartil/internal/app"
	"github.com/tartil-app/tartil/internal/config"
	"github.com/tartil-app/tartil/internal/observe"
	"github.com/tartil-app/tartil/internal/resilience"
	"github.com/tartil-app/tartil/pkg/provider/asr"
	"github.com/tartil-app/tartil/pkg/provider/asr/whisper"
	"github.com/tartil-app/tartil/pkg/provider/pitch"
	"github.com/tartil-app/tartil/pkg/provider/pitch/piptrack"
	"github.com/tartil-app/tartil/pkg/provider/verses"
	"github.com/tartil-app/tartil/pkg/provider/verses/quran"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "tartil: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "tartil: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("tartil starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			level.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level updated", "level", diff.NewLogLevel)
		}
		if diff.AnalysisChanged || diff.ReviewChanged {
			slog.Warn("analysis/review settings changed, restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Pitch ─────────────────────────────────────────────────────────────────

	reg.RegisterPitch("piptrack", func(entry config.ProviderEntry) (pitch.Tracker, error) {
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = piptrack.DefaultBaseURL
		}
		var opts []piptrack.Option
		if secs := config.IntOption(entry, "timeout_seconds", 0); secs > 0 {
			opts = append(opts, piptrack.WithTimeout(time.Duration(secs)*time.Second))
		}
		return piptrack.New(baseURL, opts...)
	})

	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("whisper", func(entry config.ProviderEntry) (asr.Recognizer, error) {
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = whisper.DefaultBaseURL
		}
		language := config.StringOption(entry, "language", "ar")
		var opts []whisper.Option
		if secs := config.IntOption(entry, "timeout_seconds", 0); secs > 0 {
			opts = append(opts, whisper.WithTimeout(time.Duration(secs)*time.Second))
		}
		return whisper.New(baseURL, language, opts...)
	})

	// ── Verses ────────────────────────────────────────────────────────────────

	reg.RegisterVerses("quran.com", func(entry config.ProviderEntry) (verses.Source, error) {
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = quran.DefaultBaseURL
		}
		reciterID := config.IntOption(entry, "reciter_id", quran.DefaultReciterID)
		var opts []quran.Option
		if u := config.StringOption(entry, "audio_base_url", ""); u != "" {
			opts = append(opts, quran.WithAudioBaseURL(u))
		}
		return quran.New(baseURL, reciterID, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to
// consume. An unconfigured slot stays nil; the matching endpoints answer 503.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Pitch.Name; name != "" {
		p, err := reg.CreatePitch(cfg.Providers.Pitch)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "pitch", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create pitch provider %q: %w", name, err)
		} else {
			// The sidecar is a separate process; a breaker fails fast while
			// it is down instead of timing out every evaluation.
			ps.Pitch = resilience.NewPitchFallback(p, name, resilience.FallbackConfig{})
			slog.Info("provider created", "kind", "pitch", "name", name)
		}
	}

	if name := cfg.Providers.ASR.Name; name != "" {
		p, err := reg.CreateASR(cfg.Providers.ASR)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "asr", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create asr provider %q: %w", name, err)
		} else {
			ps.ASR = resilience.NewASRFallback(p, name, resilience.FallbackConfig{})
			slog.Info("provider created", "kind", "asr", "name", name)
		}
	}

	if name := cfg.Providers.Verses.Name; name != "" {
		p, err := reg.CreateVerses(cfg.Providers.Verses)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "verses", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create verses provider %q: %w", name, err)
		} else {
			ps.Verses = p
			slog.Info("provider created", "kind", "verses", "name", name)
		}
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Tartil — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Pitch", cfg.Providers.Pitch.Name)
	printProvider("ASR", cfg.Providers.ASR.Name)
	printProvider("Verses", cfg.Providers.Verses.Name)
	backend := string(cfg.Storage.Backend)
	if backend == "" {
		backend = "(in-memory)"
	}
	fmt.Printf("║  Storage         : %-19s ║\n", backend)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	if cfg.Server.TLS != nil {
		fmt.Printf("║  TLS             : %-19s ║\n", "enabled")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name string) {
	if name == "" {
		name = "(not configured)"
	}
	if len(name) > 19 {
		name = name[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, name)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
