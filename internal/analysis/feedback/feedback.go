// Package feedback turns scored pitch deviations into the timestamped,
// human-readable items and summary verdicts shown to the learner. Pure
// formatting and aggregation — no I/O.
package feedback

import (
	"fmt"
	"time"

	"github.com/tartil-app/tartil/internal/analysis/pitch"
)

// Trend is the learner's dominant pitch tendency across a set of deviations.
type Trend string

const (
	TrendTooHigh Trend = "too_high"
	TrendTooLow  Trend = "too_low"
	TrendMixed   Trend = "mixed"
)

// DisplayItem is one actionable line of feedback tied to a point in time.
type DisplayItem struct {
	// Timestamp locates the issue in the user's recording.
	Timestamp time.Duration `json:"timestamp"`

	// Text is the human-readable message, e.g.
	// "Pitch off by +52.3 Hz at 3.41s (A4 → C5): too high".
	Text string `json:"text"`

	// Deviation carries the raw fields for consumers that render their own UI.
	Deviation pitch.Deviation `json:"deviation"`
}

// Format renders one [DisplayItem] per deviation, preserving order.
func Format(deviations []pitch.Deviation) []DisplayItem {
	items := make([]DisplayItem, len(deviations))
	for i, d := range deviations {
		direction := "too high"
		if d.Direction == pitch.DirectionLower {
			direction = "too low"
		}
		items[i] = DisplayItem{
			Timestamp: d.Timestamp,
			Text: fmt.Sprintf("Pitch off by %+.1f Hz at %.2fs (%s → %s): %s",
				d.FreqDiffHz, d.Timestamp.Seconds(), d.RefNote, d.UserNote, direction),
			Deviation: d,
		}
	}
	return items
}

// Summary condenses a deviation sequence into an overall verdict.
type Summary struct {
	// MostCommonIssue is the dominant direction among the reported
	// deviations; [TrendMixed] when they tie (including the zero-deviation
	// case).
	MostCommonIssue Trend `json:"most_common_issue"`

	// HighCount and LowCount split the reported deviations by direction.
	HighCount int `json:"high_count"`
	LowCount  int `json:"low_count"`

	// MeanAbsDeviationHz averages the reported deviation magnitudes.
	// 0 when there are no deviations.
	MeanAbsDeviationHz float64 `json:"mean_abs_deviation_hz"`

	// Verdict is a one-line overall assessment.
	Verdict string `json:"verdict"`
}

// Summarize aggregates the reported deviations into a [Summary].
func Summarize(deviations []pitch.Deviation) Summary {
	s := Summary{}
	var totalAbs float64
	for _, d := range deviations {
		if d.Direction == pitch.DirectionHigher {
			s.HighCount++
		} else {
			s.LowCount++
		}
		if d.FreqDiffHz >= 0 {
			totalAbs += d.FreqDiffHz
		} else {
			totalAbs -= d.FreqDiffHz
		}
	}

	switch {
	case s.HighCount > s.LowCount:
		s.MostCommonIssue = TrendTooHigh
	case s.LowCount > s.HighCount:
		s.MostCommonIssue = TrendTooLow
	default:
		s.MostCommonIssue = TrendMixed
	}

	if n := len(deviations); n > 0 {
		s.MeanAbsDeviationHz = totalAbs / float64(n)
	}
	s.Verdict = verdict(s.MeanAbsDeviationHz, len(deviations))
	return s
}

// verdict buckets the mean deviation into the three coaching tiers.
func verdict(meanAbsHz float64, deviations int) string {
	switch {
	case deviations == 0:
		return "Excellent! No significant pitch issues detected."
	case meanAbsHz < 30:
		return "Good performance. Minor pitch adjustments needed."
	case meanAbsHz < 60:
		return "Moderate pitch issues detected. Focus on the flagged timestamps."
	default:
		return "Significant pitch issues detected. Practice the flagged passages."
	}
}
