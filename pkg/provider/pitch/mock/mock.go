// Package mock provides a test double for the pitch.Tracker interface.
//
// Use Tracker to return a pre-canned frequency contour without a live
// pitch-detection backend, or a TrackFunc to derive the contour from the
// input signal.
//
// Example:
//
//	tracker := &mock.Tracker{
//	    TrackResult: audio.Contour{Frequencies: []float64{440}, HopLength: 512, SampleRate: 22050},
//	}
//	contour, _ := tracker.Track(ctx, signal)
package mock

import (
	"context"
	"sync"

	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/pitch"
)

// TrackCall records a single invocation of Track.
type TrackCall struct {
	// Ctx is the context passed to Track.
	Ctx context.Context
	// Signal is the signal passed to Track.
	Signal audio.Signal
}

// Tracker is a mock implementation of pitch.Tracker.
type Tracker struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// TrackFunc, if non-nil, computes the result per call and takes
	// precedence over TrackResult/TrackErr.
	TrackFunc func(ctx context.Context, signal audio.Signal) (audio.Contour, error)

	// TrackResult is returned by Track when TrackFunc is nil.
	TrackResult audio.Contour

	// TrackErr, if non-nil, is returned as the error from Track.
	TrackErr error

	// ModelIDValue is returned by ModelID. Defaults to "mock".
	ModelIDValue string

	// --- Call records ---

	// TrackCalls records every call to Track in order.
	TrackCalls []TrackCall
}

// Track records the call and returns the configured result.
func (t *Tracker) Track(ctx context.Context, signal audio.Signal) (audio.Contour, error) {
	t.mu.Lock()
	t.TrackCalls = append(t.TrackCalls, TrackCall{Ctx: ctx, Signal: signal})
	fn := t.TrackFunc
	result, err := t.TrackResult, t.TrackErr
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, signal)
	}
	return result, err
}

// ModelID returns ModelIDValue, or "mock" when unset.
func (t *Tracker) ModelID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ModelIDValue == "" {
		return "mock"
	}
	return t.ModelIDValue
}

// Reset clears all recorded calls. Thread-safe.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TrackCalls = nil
}

// Ensure Tracker implements pitch.Tracker at compile time.
var _ pitch.Tracker = (*Tracker)(nil)
