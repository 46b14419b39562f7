package resilience

import (
	"context"

	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/pitch"
)

// PitchFallback implements [pitch.Tracker] with automatic failover across
// multiple pitch-tracking backends. Each backend has its own circuit breaker.
type PitchFallback struct {
	group *FallbackGroup[pitch.Tracker]
}

// Compile-time interface assertion.
var _ pitch.Tracker = (*PitchFallback)(nil)

// NewPitchFallback creates a [PitchFallback] with primary as the preferred
// backend.
func NewPitchFallback(primary pitch.Tracker, primaryName string, cfg FallbackConfig) *PitchFallback {
	return &PitchFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional tracker as a fallback.
func (f *PitchFallback) AddFallback(name string, tracker pitch.Tracker) {
	f.group.AddFallback(name, tracker)
}

// Track extracts the pitch contour with the first healthy backend.
func (f *PitchFallback) Track(ctx context.Context, signal audio.Signal) (audio.Contour, error) {
	return ExecuteWithResult(f.group, func(t pitch.Tracker) (audio.Contour, error) {
		return t.Track(ctx, signal)
	})
}

// ModelID reports the primary backend's model identifier.
func (f *PitchFallback) ModelID() string {
	return f.group.entries[0].value.ModelID()
}
