// Package align implements silence-onset alignment of a reference recording
// against a user recording.
//
// Both signals are assumed to begin with a stretch of (near-)silence before
// the first word. The aligner finds the first sample whose absolute amplitude
// exceeds an energy threshold in each signal and shifts the reference so that
// both onsets coincide. This is deliberately simple: it aligns the start of
// speech, not individual words — full forced alignment is out of scope.
package align

import (
	"errors"
	"math"

	"github.com/tartil-app/tartil/pkg/audio"
)

// DefaultThreshold is the default onset energy threshold as a fraction of
// full-scale amplitude.
const DefaultThreshold = 0.02

// ErrNonPositiveThreshold is returned when the onset threshold is zero or
// negative.
var ErrNonPositiveThreshold = errors.New("align: threshold must be > 0")

// Onset returns the index of the first sample whose absolute amplitude
// exceeds threshold, or 0 when no sample does. An all-silent signal therefore
// aligns at its start rather than failing.
func Onset(s audio.Signal, threshold float64) int {
	for i, v := range s.Samples {
		if math.Abs(v) > threshold {
			return i
		}
	}
	return 0
}

// Align shifts reference so that its speech onset coincides with the user
// recording's onset and returns the shift in samples together with the
// aligned reference.
//
// The aligned reference is the slice reference[offset : offset+len(user)].
// When the reference is shorter than that window it is truncated rather than
// zero-padded; downstream comparison already tolerates unequal lengths by
// truncating to the shorter side, so padding would only manufacture silent
// frames. Empty signals yield an empty aligned reference, not an error.
//
// Align is a pure function and is idempotent: realigning an already-aligned
// pair with the same threshold yields offset 0.
func Align(user, reference audio.Signal, threshold float64) (offset int, aligned audio.Signal, err error) {
	if threshold <= 0 {
		return 0, audio.Signal{}, ErrNonPositiveThreshold
	}

	userOnset := Onset(user, threshold)
	refOnset := Onset(reference, threshold)

	offset = refOnset - userOnset
	if offset < 0 {
		offset = 0
	}

	aligned = reference.Slice(offset, offset+user.Len())
	return offset, aligned, nil
}
