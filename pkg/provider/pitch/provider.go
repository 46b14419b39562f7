// Package pitch defines the Tracker interface for pitch-detection backends.
//
// A pitch tracker maps a time-domain audio signal to a frame-by-frame
// fundamental-frequency contour. Frames where no pitch is detected (silence,
// breath, unvoiced consonants) carry a frequency of 0.
//
// Implementations must be safe for concurrent use.
package pitch

import (
	"context"

	"github.com/tartil-app/tartil/pkg/audio"
)

// Tracker is the abstraction over any pitch-detection backend.
//
// The returned contour's HopLength and SampleRate describe the analysis grid
// the backend used; callers must compare contours only when both were
// produced on the same grid.
type Tracker interface {
	// Track computes the fundamental-frequency contour of signal. Unvoiced
	// frames are reported as 0 Hz. Returns an error if the backend request
	// fails or ctx is cancelled.
	Track(ctx context.Context, signal audio.Signal) (audio.Contour, error)

	// ModelID returns the backend-specific algorithm or model identifier
	// (e.g., "piptrack", "crepe-tiny"). Useful for logging.
	ModelID() string
}
