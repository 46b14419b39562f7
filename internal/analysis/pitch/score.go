// Package pitch compares two parallel pitch contours frame by frame and
// quantifies how far the user's fundamental frequency strays from the
// reference: per-frame deviations in Hz, semitones, and cents, plus
// aggregate statistics over a whole contour pair.
//
// Extracting the contours from raw audio is the job of a pitch tracker
// collaborator (see pkg/provider/pitch); this package only does the math.
package pitch

import (
	"errors"
	"math"
	"time"

	"github.com/tartil-app/tartil/pkg/audio"
)

// DefaultThresholdHz is the default deviation magnitude above which a frame
// pair is reported as a [Deviation].
const DefaultThresholdHz = 50.0

// ErrContourMismatch is returned when the two contours were produced with
// different hop lengths or sample rates and are therefore not frame-aligned.
// This is a caller error, rejected before any frame is inspected.
var ErrContourMismatch = errors.New("pitch: contours have mismatched hop length or sample rate")

// Direction classifies which side of the reference the user's pitch fell on.
type Direction string

const (
	DirectionHigher Direction = "higher"
	DirectionLower  Direction = "lower"
)

// Deviation is one frame pair whose frequency difference exceeded the
// reporting threshold. Both frames are voiced by construction.
type Deviation struct {
	// FrameIndex is the 0-based frame position within the compared contours.
	FrameIndex int

	// Timestamp is the frame's time offset from the start of the compared
	// signals.
	Timestamp time.Duration

	// UserFreq and RefFreq are the voiced frequencies in Hz.
	UserFreq float64
	RefFreq  float64

	// FreqDiffHz is UserFreq − RefFreq (signed).
	FreqDiffHz float64

	// SemitoneDiff and CentsDiff express the same difference on the musical
	// scale (1 semitone = 100 cents).
	SemitoneDiff float64
	CentsDiff    float64

	// Direction is DirectionHigher when the user sang above the reference.
	Direction Direction

	// UserNote and RefNote are the nearest note names for the two frequencies.
	UserNote string
	RefNote  string
}

// Score compares user and ref frame by frame and returns one [Deviation] per
// voiced frame pair whose absolute frequency difference reaches thresholdHz,
// in frame order.
//
// Frames where either side is unvoiced (frequency ≤ 0) are skipped. The
// comparison covers min(len(user), len(ref)) frames; a length mismatch is
// not an error.
func Score(user, ref audio.Contour, thresholdHz float64) ([]Deviation, error) {
	if user.HopLength != ref.HopLength || user.SampleRate != ref.SampleRate {
		return nil, ErrContourMismatch
	}

	n := min(user.Len(), ref.Len())
	var deviations []Deviation
	for i := range n {
		uf, rf := user.Frequencies[i], ref.Frequencies[i]
		if uf <= 0 || rf <= 0 {
			continue
		}

		diff := uf - rf
		// A zero difference is never a deviation, whatever the threshold.
		if diff == 0 || math.Abs(diff) < thresholdHz {
			continue
		}

		semis, cents := SemitoneDiff(uf, rf)
		dir := DirectionHigher
		if diff < 0 {
			dir = DirectionLower
		}
		deviations = append(deviations, Deviation{
			FrameIndex:   i,
			Timestamp:    user.FrameTime(i),
			UserFreq:     uf,
			RefFreq:      rf,
			FreqDiffHz:   diff,
			SemitoneDiff: semis,
			CentsDiff:    cents,
			Direction:    dir,
			UserNote:     NoteName(uf),
			RefNote:      NoteName(rf),
		})
	}
	return deviations, nil
}
