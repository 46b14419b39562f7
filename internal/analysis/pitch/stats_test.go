package pitch_test

import (
	"math"
	"testing"

	"github.com/tartil-app/tartil/internal/analysis/pitch"
)

func TestStats_IdenticalContours(t *testing.T) {
	t.Parallel()

	c := contour(440, 450, 460)
	s, err := pitch.Stats(c, c, pitch.DefaultThresholdHz)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.AccuracyPct != 100 {
		t.Errorf("AccuracyPct = %v, want 100", s.AccuracyPct)
	}
	if s.ValidFrames != 3 || s.DeviationCount != 0 {
		t.Errorf("ValidFrames = %d, DeviationCount = %d, want 3 and 0", s.ValidFrames, s.DeviationCount)
	}
	if s.MeanAbsDeviationHz != 0 || s.MaxAbsDeviationHz != 0 {
		t.Errorf("deviation aggregates nonzero for identical contours: %+v", s)
	}
}

func TestStats_NoVoicedFrames(t *testing.T) {
	t.Parallel()

	user := contour(0, 0, -1)
	ref := contour(440, 0, 440)

	s, err := pitch.Stats(user, ref, pitch.DefaultThresholdHz)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.ValidFrames != 0 {
		t.Errorf("ValidFrames = %d, want 0", s.ValidFrames)
	}
	// Vacuously perfect.
	if s.AccuracyPct != 100 {
		t.Errorf("AccuracyPct = %v, want 100", s.AccuracyPct)
	}
	if s.TotalFrames != 3 {
		t.Errorf("TotalFrames = %d, want 3", s.TotalFrames)
	}
}

func TestStats_Aggregates(t *testing.T) {
	t.Parallel()

	// Absolute deviations: 10, 30, 80.
	user := contour(450, 410, 520)
	ref := contour(440, 440, 440)

	s, err := pitch.Stats(user, ref, 50)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got, want := s.MeanAbsDeviationHz, 40.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("MeanAbsDeviationHz = %v, want %v", got, want)
	}
	if got, want := s.MaxAbsDeviationHz, 80.0; got != want {
		t.Errorf("MaxAbsDeviationHz = %v, want %v", got, want)
	}
	if got, want := s.MedianAbsDeviationHz, 30.0; got != want {
		t.Errorf("MedianAbsDeviationHz = %v, want %v", got, want)
	}
	if s.HighCount != 2 || s.LowCount != 1 {
		t.Errorf("HighCount = %d, LowCount = %d, want 2 and 1", s.HighCount, s.LowCount)
	}
	// 10 and 30 are within the 50 Hz window, 80 is not.
	if got, want := s.AccuracyPct, 100*2.0/3.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("AccuracyPct = %v, want %v", got, want)
	}
	if s.DeviationCount != 1 {
		t.Errorf("DeviationCount = %d, want 1", s.DeviationCount)
	}
	if s.MeanAbsDeviationCents <= 0 || s.MaxAbsDeviationCents < s.MeanAbsDeviationCents {
		t.Errorf("cents aggregates implausible: mean=%v max=%v", s.MeanAbsDeviationCents, s.MaxAbsDeviationCents)
	}
}

func TestStats_AccuracyMonotoneInThreshold(t *testing.T) {
	t.Parallel()

	user := contour(445, 460, 500, 440, 380)
	ref := contour(440, 440, 440, 440, 440)

	prev := -1.0
	// Accuracy must be non-decreasing as the threshold widens, i.e.
	// non-increasing as it shrinks toward zero.
	for _, th := range []float64{0, 5, 20, 50, 100, 200} {
		s, err := pitch.Stats(user, ref, th)
		if err != nil {
			t.Fatalf("Stats(threshold=%v): %v", th, err)
		}
		if s.AccuracyPct < prev {
			t.Fatalf("AccuracyPct decreased from %v to %v when threshold widened to %v", prev, s.AccuracyPct, th)
		}
		prev = s.AccuracyPct
	}
}
