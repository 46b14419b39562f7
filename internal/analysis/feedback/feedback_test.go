package feedback_test

import (
	"strings"
	"testing"
	"time"

	"github.com/tartil-app/tartil/internal/analysis/feedback"
	"github.com/tartil-app/tartil/internal/analysis/pitch"
)

func dev(diff float64, dir pitch.Direction, at time.Duration) pitch.Deviation {
	return pitch.Deviation{
		Timestamp:  at,
		UserFreq:   440 + diff,
		RefFreq:    440,
		FreqDiffHz: diff,
		Direction:  dir,
		UserNote:   "A4",
		RefNote:    "A4",
	}
}

func TestFormat_MessageShape(t *testing.T) {
	t.Parallel()

	items := feedback.Format([]pitch.Deviation{
		dev(52.3, pitch.DirectionHigher, 3410*time.Millisecond),
	})
	if len(items) != 1 {
		t.Fatalf("item count = %d, want 1", len(items))
	}
	text := items[0].Text
	for _, want := range []string{"+52.3 Hz", "3.41s", "too high"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text = %q, missing %q", text, want)
		}
	}
	if items[0].Timestamp != 3410*time.Millisecond {
		t.Errorf("Timestamp = %v, want 3.41s", items[0].Timestamp)
	}
}

func TestFormat_Empty(t *testing.T) {
	t.Parallel()

	if items := feedback.Format(nil); len(items) != 0 {
		t.Errorf("item count = %d, want 0", len(items))
	}
}

func TestSummarize_MostlyHigh(t *testing.T) {
	t.Parallel()

	s := feedback.Summarize([]pitch.Deviation{
		dev(60, pitch.DirectionHigher, 0),
		dev(70, pitch.DirectionHigher, time.Second),
		dev(-55, pitch.DirectionLower, 2*time.Second),
	})
	if s.MostCommonIssue != feedback.TrendTooHigh {
		t.Errorf("MostCommonIssue = %q, want %q", s.MostCommonIssue, feedback.TrendTooHigh)
	}
	if s.HighCount != 2 || s.LowCount != 1 {
		t.Errorf("HighCount = %d, LowCount = %d, want 2 and 1", s.HighCount, s.LowCount)
	}
}

func TestSummarize_TieIsMixed(t *testing.T) {
	t.Parallel()

	s := feedback.Summarize([]pitch.Deviation{
		dev(60, pitch.DirectionHigher, 0),
		dev(-60, pitch.DirectionLower, time.Second),
	})
	if s.MostCommonIssue != feedback.TrendMixed {
		t.Errorf("MostCommonIssue = %q, want %q", s.MostCommonIssue, feedback.TrendMixed)
	}
}

func TestSummarize_NoDeviations(t *testing.T) {
	t.Parallel()

	s := feedback.Summarize(nil)
	if s.MostCommonIssue != feedback.TrendMixed {
		t.Errorf("MostCommonIssue = %q, want %q", s.MostCommonIssue, feedback.TrendMixed)
	}
	if s.MeanAbsDeviationHz != 0 {
		t.Errorf("MeanAbsDeviationHz = %v, want 0", s.MeanAbsDeviationHz)
	}
	if !strings.Contains(s.Verdict, "Excellent") {
		t.Errorf("Verdict = %q, want the no-issue verdict", s.Verdict)
	}
}

func TestSummarize_VerdictTiers(t *testing.T) {
	t.Parallel()

	low := feedback.Summarize([]pitch.Deviation{dev(20, pitch.DirectionHigher, 0)})
	if !strings.Contains(low.Verdict, "Good") {
		t.Errorf("mean 20 Hz: Verdict = %q, want the minor tier", low.Verdict)
	}

	mid := feedback.Summarize([]pitch.Deviation{dev(45, pitch.DirectionHigher, 0)})
	if !strings.Contains(mid.Verdict, "Moderate") {
		t.Errorf("mean 45 Hz: Verdict = %q, want the moderate tier", mid.Verdict)
	}

	high := feedback.Summarize([]pitch.Deviation{dev(-90, pitch.DirectionLower, 0)})
	if !strings.Contains(high.Verdict, "Significant") {
		t.Errorf("mean 90 Hz: Verdict = %q, want the significant tier", high.Verdict)
	}
}
