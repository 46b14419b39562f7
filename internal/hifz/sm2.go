// Package hifz schedules memorization reviews of Quran verses using the SM-2
// spaced-repetition algorithm and tracks each verse's mastery status.
package hifz

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrQualityOutOfRange is returned when a review quality is outside 1–5.
var ErrQualityOutOfRange = errors.New("hifz: quality must be between 1 and 5")

// MasteryStreak is the number of consecutive reviews with quality 4 or 5
// after which a verse counts as mastered.
const MasteryStreak = 7

// initialEase is the easiness factor assigned to a verse never reviewed.
const initialEase = 2.5

// minEase is the floor the easiness factor can never drop below.
const minEase = 1.3

// VerseKey identifies one ayah.
type VerseKey struct {
	Surah int `json:"surah"`
	Ayah  int `json:"ayah"`
}

// String renders the key in the conventional surah:ayah form.
func (k VerseKey) String() string {
	return fmt.Sprintf("%d:%d", k.Surah, k.Ayah)
}

// Valid reports whether the key is within the bounds of the mushaf.
func (k VerseKey) Valid() bool {
	return k.Surah >= 1 && k.Surah <= 114 && k.Ayah >= 1
}

// Status is the memorization stage of a verse.
type Status string

const (
	// StatusLearning means the verse has not yet reached the mastery streak.
	StatusLearning Status = "learning"

	// StatusMastered means the verse has [MasteryStreak] consecutive good
	// reviews. A bad review drops it back to learning.
	StatusMastered Status = "mastered"
)

// State is the scheduling state of one verse for one user.
type State struct {
	Verse VerseKey `json:"verse"`

	// Repetitions counts consecutive successful reviews (quality >= 3).
	Repetitions int `json:"repetitions"`

	// IntervalDays is the gap to the next review. 0 means never reviewed.
	IntervalDays int `json:"interval_days"`

	// Ease is the SM-2 easiness factor, never below 1.3.
	Ease float64 `json:"ease"`

	// Streak counts consecutive reviews with quality 4 or 5.
	Streak int `json:"streak"`

	Status Status `json:"status"`

	// LastQuality is the quality of the most recent review, -1 before the
	// first review.
	LastQuality int `json:"last_quality"`

	// LastReviewed is zero before the first review.
	LastReviewed time.Time `json:"last_reviewed"`

	// NextReview is zero before the first review; such verses sort first in
	// the due queue.
	NextReview time.Time `json:"next_review"`
}

// NewState returns the state of a verse that has never been reviewed.
func NewState(verse VerseKey) State {
	return State{
		Verse:       verse,
		Ease:        initialEase,
		Status:      StatusLearning,
		LastQuality: -1,
	}
}

// Due reports whether the verse needs review at the given instant. A verse
// never reviewed is always due.
func (s State) Due(now time.Time) bool {
	return s.NextReview.IsZero() || !s.NextReview.After(now)
}

// Apply runs one SM-2 review step and returns the updated state.
//
// quality grades the recall on a 1–5 scale: 1–2 is a failed recall, 3 a
// strained success, 4–5 a clean one. A failed recall resets the repetition
// count and schedules the verse for tomorrow; the easiness factor is
// adjusted on every review regardless of outcome. Quality below 4 breaks
// the mastery streak without touching the repetition count.
func (s State) Apply(quality int, now time.Time) (State, error) {
	if quality < 1 || quality > 5 {
		return State{}, fmt.Errorf("%w: got %d", ErrQualityOutOfRange, quality)
	}

	next := s

	if quality < 3 {
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(s.IntervalDays) * s.Ease))
		}
	}

	q := float64(quality)
	next.Ease = s.Ease + 0.1 - (5-q)*(0.08+(5-q)*0.02)
	if next.Ease < minEase {
		next.Ease = minEase
	}

	if quality >= 4 {
		next.Streak++
	} else {
		next.Streak = 0
	}
	if next.Streak >= MasteryStreak {
		next.Status = StatusMastered
	} else {
		next.Status = StatusLearning
	}

	next.LastQuality = quality
	next.LastReviewed = now
	next.NextReview = now.AddDate(0, 0, next.IntervalDays)
	return next, nil
}
