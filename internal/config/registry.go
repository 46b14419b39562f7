package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tartil-app/tartil/pkg/provider/asr"
	"github.com/tartil-app/tartil/pkg/provider/pitch"
	"github.com/tartil-app/tartil/pkg/provider/verses"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	pitch  map[string]func(ProviderEntry) (pitch.Tracker, error)
	asr    map[string]func(ProviderEntry) (asr.Recognizer, error)
	verses map[string]func(ProviderEntry) (verses.Source, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		pitch:  make(map[string]func(ProviderEntry) (pitch.Tracker, error)),
		asr:    make(map[string]func(ProviderEntry) (asr.Recognizer, error)),
		verses: make(map[string]func(ProviderEntry) (verses.Source, error)),
	}
}

// RegisterPitch registers a pitch-tracker factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterPitch(name string, factory func(ProviderEntry) (pitch.Tracker, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pitch[name] = factory
}

// RegisterASR registers a speech-recognizer factory under name.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterVerses registers a verse-source factory under name.
func (r *Registry) RegisterVerses(name string, factory func(ProviderEntry) (verses.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verses[name] = factory
}

// CreatePitch instantiates a pitch tracker using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreatePitch(entry ProviderEntry) (pitch.Tracker, error) {
	r.mu.RLock()
	factory, ok := r.pitch[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: pitch/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateASR instantiates a speech recognizer using the factory registered
// under entry.Name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVerses instantiates a verse source using the factory registered under
// entry.Name.
func (r *Registry) CreateVerses(entry ProviderEntry) (verses.Source, error) {
	r.mu.RLock()
	factory, ok := r.verses[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: verses/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// StringOption returns the string value of a provider option, or def when the
// option is absent or not a string.
func StringOption(entry ProviderEntry, key, def string) string {
	if v, ok := entry.Options[key].(string); ok {
		return v
	}
	return def
}

// IntOption returns the integer value of a provider option, or def when the
// option is absent or not numeric. YAML decodes integers as int, but float64
// is accepted too for values written like "2.0".
func IntOption(entry ProviderEntry, key string, def int) int {
	switch v := entry.Options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
