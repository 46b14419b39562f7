// Package segment slices an aligned signal into fixed-duration windows so
// that pitch comparison can localise feedback to short stretches of the
// recitation instead of judging the whole take at once.
package segment

import (
	"errors"
	"math"

	"github.com/tartil-app/tartil/pkg/audio"
)

// DefaultIntervalSeconds is the default analysis window length.
const DefaultIntervalSeconds = 5.0

var (
	// ErrNonPositiveInterval is returned when the window length is zero or negative.
	ErrNonPositiveInterval = errors.New("segment: interval must be > 0")

	// ErrInvalidSampleRate is returned when the signal carries a sample rate ≤ 0.
	ErrInvalidSampleRate = errors.New("segment: signal sample rate must be > 0")
)

// Split divides s into consecutive windows of round(intervalSeconds ×
// sampleRate) samples. The final window may be shorter; it is never dropped,
// so the concatenation of all windows reproduces s exactly. An empty signal
// yields no windows.
//
// Split is a pure function of its inputs and is used identically for the
// user and the reference signal.
func Split(s audio.Signal, intervalSeconds float64) ([]audio.Signal, error) {
	if intervalSeconds <= 0 {
		return nil, ErrNonPositiveInterval
	}
	if s.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	perWindow := int(math.Round(intervalSeconds * float64(s.SampleRate)))
	if perWindow < 1 {
		perWindow = 1
	}

	var windows []audio.Signal
	for start := 0; start < s.Len(); start += perWindow {
		windows = append(windows, s.Slice(start, start+perWindow))
	}
	return windows, nil
}

// Pair holds the user and reference windows covering the same time span.
type Pair struct {
	User      audio.Signal
	Reference audio.Signal
}

// Zip pairs user and reference windows index by index, truncating to the
// shorter sequence. A window-count mismatch is expected whenever the two
// recordings differ in length and is resolved here, not reported as an error.
func Zip(user, reference []audio.Signal) []Pair {
	n := min(len(user), len(reference))
	pairs := make([]Pair, n)
	for i := range n {
		pairs[i] = Pair{User: user[i], Reference: reference[i]}
	}
	return pairs
}
