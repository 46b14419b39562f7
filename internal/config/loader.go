package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"pitch":  {"piptrack"},
	"asr":    {"whisper"},
	"verses": {"quran.com"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("pitch", cfg.Providers.Pitch.Name)
	validateProviderName("asr", cfg.Providers.ASR.Name)
	validateProviderName("verses", cfg.Providers.Verses.Name)

	if cfg.Providers.Pitch.Name == "" {
		slog.Warn("providers.pitch is not configured; pitch evaluation endpoints will be unavailable")
	}
	if cfg.Providers.ASR.Name == "" {
		slog.Warn("providers.asr is not configured; memorization checks and live feedback will be unavailable")
	}

	// Storage
	switch {
	case cfg.Storage.Backend == "":
		slog.Warn("storage.backend is empty; review schedules will be kept in memory and lost on restart")
	case !cfg.Storage.Backend.IsValid():
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: postgres, sqlite", cfg.Storage.Backend))
	case cfg.Storage.Backend == StoragePostgres && cfg.Storage.PostgresDSN == "":
		errs = append(errs, errors.New("storage.postgres_dsn is required when storage.backend is postgres"))
	case cfg.Storage.Backend == StorageSQLite && cfg.Storage.SQLitePath == "":
		errs = append(errs, errors.New("storage.sqlite_path is required when storage.backend is sqlite"))
	}

	// Analysis
	a := cfg.Analysis
	if a.SilenceThreshold < 0 || a.SilenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("analysis.silence_threshold %.3f is out of range [0, 1)", a.SilenceThreshold))
	}
	if a.SegmentIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("analysis.segment_interval_seconds %.2f must not be negative", a.SegmentIntervalSeconds))
	}
	if a.PitchThresholdHz < 0 {
		errs = append(errs, fmt.Errorf("analysis.pitch_threshold_hz %.2f must not be negative", a.PitchThresholdHz))
	}
	if a.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("analysis.concurrency %d must not be negative", a.Concurrency))
	}
	if a.MinSimilarity < 0 || a.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("analysis.min_similarity %.3f is out of range [0, 1]", a.MinSimilarity))
	}

	// Review
	r := cfg.Review
	if r.MinQuality != 0 || r.MaxQuality != 0 {
		if r.MinQuality < 1 || r.MaxQuality > 5 || r.MinQuality > r.MaxQuality {
			errs = append(errs, fmt.Errorf("review quality bounds [%d, %d] must satisfy 1 <= min <= max <= 5", r.MinQuality, r.MaxQuality))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
