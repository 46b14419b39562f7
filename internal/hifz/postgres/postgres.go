// Package postgres provides a PostgreSQL-backed implementation of
// [hifz.Store] and [hifz.SummaryStore], sharing a single [pgxpool.Pool].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	state, _ := store.Get(ctx, userID, verse)
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tartil-app/tartil/internal/hifz"
)

// Compile-time interface checks.
var (
	_ hifz.Store        = (*Store)(nil)
	_ hifz.SummaryStore = (*Store)(nil)
)

const ddlMemorization = `
CREATE TABLE IF NOT EXISTS user_memorization (
    user_id       TEXT             NOT NULL,
    surah         INTEGER          NOT NULL,
    ayah          INTEGER          NOT NULL,
    repetitions   INTEGER          NOT NULL DEFAULT 0,
    interval_days INTEGER          NOT NULL DEFAULT 0,
    ease          DOUBLE PRECISION NOT NULL DEFAULT 2.5,
    streak        INTEGER          NOT NULL DEFAULT 0,
    status        TEXT             NOT NULL DEFAULT 'learning',
    last_quality  INTEGER          NOT NULL DEFAULT -1,
    last_reviewed TIMESTAMPTZ,
    next_review   TIMESTAMPTZ,
    PRIMARY KEY (user_id, surah, ayah)
);

CREATE INDEX IF NOT EXISTS idx_user_memorization_due
    ON user_memorization (user_id, next_review NULLS FIRST);
`

const ddlAnalyses = `
CREATE TABLE IF NOT EXISTS user_analyses (
    id         BIGSERIAL   PRIMARY KEY,
    user_id    TEXT        NOT NULL,
    surah      INTEGER     NOT NULL,
    ayah       INTEGER     NOT NULL,
    kind       TEXT        NOT NULL,
    score      DOUBLE PRECISION NOT NULL,
    detail     JSONB       NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_user_analyses_user_created
    ON user_analyses (user_id, created_at DESC);
`

// Migrate creates or ensures all required tables exist. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlMemorization, ddlAnalyses} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

// Store is the PostgreSQL-backed review and analysis store.
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping probes the database connection. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Get implements [hifz.Store].
func (s *Store) Get(ctx context.Context, userID string, verse hifz.VerseKey) (*hifz.State, error) {
	const q = `
		SELECT surah, ayah, repetitions, interval_days, ease, streak, status,
		       last_quality, last_reviewed, next_review
		FROM   user_memorization
		WHERE  user_id = $1 AND surah = $2 AND ayah = $3`

	rows, err := s.pool.Query(ctx, q, userID, verse.Surah, verse.Ayah)
	if err != nil {
		return nil, fmt.Errorf("hifz store: get %s: %w", verse, err)
	}
	state, err := pgx.CollectOneRow(rows, scanState)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hifz store: get %s: %w", verse, err)
	}
	return &state, nil
}

// Put implements [hifz.Store]. It upserts on (user_id, surah, ayah).
func (s *Store) Put(ctx context.Context, userID string, state hifz.State) error {
	const q = `
		INSERT INTO user_memorization
		    (user_id, surah, ayah, repetitions, interval_days, ease, streak,
		     status, last_quality, last_reviewed, next_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, surah, ayah) DO UPDATE SET
		    repetitions   = EXCLUDED.repetitions,
		    interval_days = EXCLUDED.interval_days,
		    ease          = EXCLUDED.ease,
		    streak        = EXCLUDED.streak,
		    status        = EXCLUDED.status,
		    last_quality  = EXCLUDED.last_quality,
		    last_reviewed = EXCLUDED.last_reviewed,
		    next_review   = EXCLUDED.next_review`

	_, err := s.pool.Exec(ctx, q,
		userID,
		state.Verse.Surah,
		state.Verse.Ayah,
		state.Repetitions,
		state.IntervalDays,
		state.Ease,
		state.Streak,
		string(state.Status),
		state.LastQuality,
		nullableTime(state.LastReviewed),
		nullableTime(state.NextReview),
	)
	if err != nil {
		return fmt.Errorf("hifz store: put %s: %w", state.Verse, err)
	}
	return nil
}

// Due implements [hifz.Store]. NULL next_review (never reviewed) sorts first,
// then oldest due date.
func (s *Store) Due(ctx context.Context, userID string, now time.Time, limit int) ([]hifz.State, error) {
	q := `
		SELECT surah, ayah, repetitions, interval_days, ease, streak, status,
		       last_quality, last_reviewed, next_review
		FROM   user_memorization
		WHERE  user_id = $1
		  AND  (next_review IS NULL OR next_review <= $2)
		ORDER  BY next_review ASC NULLS FIRST, surah, ayah`

	args := []any{userID, now}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("hifz store: due: %w", err)
	}
	states, err := pgx.CollectRows(rows, scanState)
	if err != nil {
		return nil, fmt.Errorf("hifz store: due: %w", err)
	}
	if states == nil {
		states = []hifz.State{}
	}
	return states, nil
}

// SaveSummary implements [hifz.SummaryStore].
func (s *Store) SaveSummary(ctx context.Context, summary hifz.Summary) error {
	const q = `
		INSERT INTO user_analyses (user_id, surah, ayah, kind, score, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::jsonb), $7)`

	created := summary.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var detail any
	if len(summary.Detail) > 0 {
		detail = summary.Detail
	}
	_, err := s.pool.Exec(ctx, q,
		summary.UserID,
		summary.Verse.Surah,
		summary.Verse.Ayah,
		summary.Kind,
		summary.Score,
		detail,
		created,
	)
	if err != nil {
		return fmt.Errorf("hifz store: save summary: %w", err)
	}
	return nil
}

// RecentSummaries implements [hifz.SummaryStore].
func (s *Store) RecentSummaries(ctx context.Context, userID string, limit int) ([]hifz.Summary, error) {
	q := `
		SELECT user_id, surah, ayah, kind, score, detail, created_at
		FROM   user_analyses
		WHERE  user_id = $1
		ORDER  BY created_at DESC, id DESC`

	args := []any{userID}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("hifz store: recent summaries: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (hifz.Summary, error) {
		var sm hifz.Summary
		err := row.Scan(&sm.UserID, &sm.Verse.Surah, &sm.Verse.Ayah, &sm.Kind, &sm.Score, &sm.Detail, &sm.CreatedAt)
		return sm, err
	})
	if err != nil {
		return nil, fmt.Errorf("hifz store: recent summaries: %w", err)
	}
	if summaries == nil {
		summaries = []hifz.Summary{}
	}
	return summaries, nil
}

// scanState scans one user_memorization row.
func scanState(row pgx.CollectableRow) (hifz.State, error) {
	var (
		st           hifz.State
		status       string
		lastReviewed *time.Time
		nextReview   *time.Time
	)
	err := row.Scan(
		&st.Verse.Surah,
		&st.Verse.Ayah,
		&st.Repetitions,
		&st.IntervalDays,
		&st.Ease,
		&st.Streak,
		&status,
		&st.LastQuality,
		&lastReviewed,
		&nextReview,
	)
	if err != nil {
		return hifz.State{}, err
	}
	st.Status = hifz.Status(status)
	if lastReviewed != nil {
		st.LastReviewed = *lastReviewed
	}
	if nextReview != nil {
		st.NextReview = *nextReview
	}
	return st, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
