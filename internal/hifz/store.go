package hifz

import (
	"context"
	"time"
)

// Store persists per-user verse scheduling state.
//
// Implementations must be safe for concurrent use; see the postgres and
// sqlite subpackages.
type Store interface {
	// Get retrieves the state of one verse for a user.
	// Returns (nil, nil) when the verse has never been tracked.
	Get(ctx context.Context, userID string, verse VerseKey) (*State, error)

	// Put upserts the state of one verse for a user.
	Put(ctx context.Context, userID string, state State) error

	// Due returns the verses due for review at the given instant, verses
	// never reviewed first, then oldest NextReview first. limit caps the
	// result; 0 means no cap. Returns an empty (non-nil) slice when nothing
	// is due.
	Due(ctx context.Context, userID string, now time.Time, limit int) ([]State, error)
}

// Summary is a persisted record of one evaluation run, kept so a user's
// progress over time can be charted.
type Summary struct {
	UserID string   `json:"user_id"`
	Verse  VerseKey `json:"verse"`

	// Kind names the analysis that produced the score: "pitch", "tajweed"
	// or "memorization".
	Kind string `json:"kind"`

	// Score is the 0–100 result of the run.
	Score float64 `json:"score"`

	// Detail is the analysis-specific result document, JSON-encoded.
	Detail []byte `json:"detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SummaryStore persists evaluation summaries.
type SummaryStore interface {
	// SaveSummary appends one summary record.
	SaveSummary(ctx context.Context, summary Summary) error

	// RecentSummaries returns a user's summaries, newest first. limit caps
	// the result; 0 means no cap. Returns an empty (non-nil) slice when the
	// user has no history.
	RecentSummaries(ctx context.Context, userID string, limit int) ([]Summary, error)
}
