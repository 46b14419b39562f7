package pitch

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tartil-app/tartil/pkg/audio"
)

// Statistics aggregates pitch deviation over every voiced frame pair of a
// contour comparison — not just the pairs that exceeded the reporting
// threshold.
type Statistics struct {
	// TotalFrames is min(len(user), len(ref)), the number of compared frames.
	TotalFrames int

	// ValidFrames counts frames where both sides were voiced.
	ValidFrames int

	// DeviationCount counts voiced pairs whose absolute difference exceeded
	// the reporting threshold (the pairs materialised as [Deviation] values).
	DeviationCount int

	// Hz aggregates over all voiced pairs.
	MeanAbsDeviationHz   float64
	MaxAbsDeviationHz    float64
	StdDeviationHz       float64
	MedianAbsDeviationHz float64

	// Cents aggregates over all voiced pairs.
	MeanAbsDeviationCents float64
	MaxAbsDeviationCents  float64

	// HighCount and LowCount split the voiced pairs by direction. Pairs with
	// an exactly zero difference count toward neither.
	HighCount int
	LowCount  int

	// AccuracyPct is the percentage of voiced pairs within thresholdHz of the
	// reference. 100 when there are no voiced pairs: a comparison with
	// nothing to judge is vacuously perfect.
	AccuracyPct float64
}

// Stats computes [Statistics] for the voiced frame pairs of user and ref.
// thresholdHz is the accuracy window; passing [DefaultThresholdHz] reproduces
// the standard 50 Hz accuracy figure. Returns [ErrContourMismatch] when the
// contours are not frame-aligned.
func Stats(user, ref audio.Contour, thresholdHz float64) (Statistics, error) {
	if user.HopLength != ref.HopLength || user.SampleRate != ref.SampleRate {
		return Statistics{}, ErrContourMismatch
	}

	n := min(user.Len(), ref.Len())
	s := Statistics{TotalFrames: n, AccuracyPct: 100}

	var absHz, absCents []float64
	within := 0
	for i := range n {
		uf, rf := user.Frequencies[i], ref.Frequencies[i]
		if uf <= 0 || rf <= 0 {
			continue
		}
		s.ValidFrames++

		diff := uf - rf
		ad := math.Abs(diff)
		absHz = append(absHz, ad)

		_, cents := SemitoneDiff(uf, rf)
		absCents = append(absCents, math.Abs(cents))

		switch {
		case diff > 0:
			s.HighCount++
		case diff < 0:
			s.LowCount++
		}
		if ad >= thresholdHz {
			s.DeviationCount++
		}
		if ad <= thresholdHz {
			within++
		}
	}

	if len(absHz) == 0 {
		return s, nil
	}

	s.MeanAbsDeviationHz = stat.Mean(absHz, nil)
	s.MaxAbsDeviationHz = floats.Max(absHz)
	s.StdDeviationHz = stat.PopStdDev(absHz, nil)
	s.MedianAbsDeviationHz = median(absHz)
	s.MeanAbsDeviationCents = stat.Mean(absCents, nil)
	s.MaxAbsDeviationCents = floats.Max(absCents)
	s.AccuracyPct = 100 * float64(within) / float64(len(absHz))
	return s, nil
}

// median sorts a copy of xs; [stat.Quantile] requires sorted input.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
