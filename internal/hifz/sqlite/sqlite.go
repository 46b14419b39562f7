// Package sqlite provides a SQLite-backed implementation of [hifz.Store] and
// [hifz.SummaryStore] for single-machine deployments where running
// PostgreSQL is not worth the trouble.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/tartil-app/tartil/internal/hifz"
)

// Compile-time interface checks.
var (
	_ hifz.Store        = (*Store)(nil)
	_ hifz.SummaryStore = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS user_memorization (
    user_id       TEXT    NOT NULL,
    surah         INTEGER NOT NULL,
    ayah          INTEGER NOT NULL,
    repetitions   INTEGER NOT NULL DEFAULT 0,
    interval_days INTEGER NOT NULL DEFAULT 0,
    ease          REAL    NOT NULL DEFAULT 2.5,
    streak        INTEGER NOT NULL DEFAULT 0,
    status        TEXT    NOT NULL DEFAULT 'learning',
    last_quality  INTEGER NOT NULL DEFAULT -1,
    last_reviewed INTEGER,
    next_review   INTEGER,
    PRIMARY KEY (user_id, surah, ayah)
);

CREATE INDEX IF NOT EXISTS idx_user_memorization_due
    ON user_memorization (user_id, next_review);

CREATE TABLE IF NOT EXISTS user_analyses (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    TEXT    NOT NULL,
    surah      INTEGER NOT NULL,
    ayah       INTEGER NOT NULL,
    kind       TEXT    NOT NULL,
    score      REAL    NOT NULL,
    detail     BLOB,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_analyses_user_created
    ON user_analyses (user_id, created_at DESC);
`

// Store wraps SQLite access for review and analysis data.
// Timestamps are stored as Unix microseconds; zero times as NULL.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path and ensures the
// schema exists. Pass ":memory:" for an ephemeral store.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	// modernc.org/sqlite serializes writes per connection; a single
	// connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements [hifz.Store].
func (s *Store) Get(ctx context.Context, userID string, verse hifz.VerseKey) (*hifz.State, error) {
	const q = `
		SELECT surah, ayah, repetitions, interval_days, ease, streak, status,
		       last_quality, last_reviewed, next_review
		FROM   user_memorization
		WHERE  user_id = ? AND surah = ? AND ayah = ?`

	state, err := scanState(s.db.QueryRowContext(ctx, q, userID, verse.Surah, verse.Ayah))
	if errors.Is(err, sql.ErrNoRows) {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, surah, ayah) DO UPDATE SET
		    repetitions   = excluded.repetitions,
		    interval_days = excluded.interval_days,
		    ease          = excluded.ease,
		    streak        = excluded.streak,
		    status        = excluded.status,
		    last_quality  = excluded.last_quality,
		    last_reviewed = excluded.last_reviewed,
		    next_review   = excluded.next_review`

	_, err := s.db.ExecContext(ctx, q,
		userID,
		state.Verse.Surah,
		state.Verse.Ayah,
		state.Repetitions,
		state.IntervalDays,
		state.Ease,
		state.Streak,
		string(state.Status),
		state.LastQuality,
		encodeTime(state.LastReviewed),
		encodeTime(state.NextReview),
	)
	if err != nil {
		return fmt.Errorf("hifz store: put %s: %w", state.Verse, err)
	}
	return nil
}

// Due implements [hifz.Store]. NULL next_review sorts first, then oldest due
// date.
func (s *Store) Due(ctx context.Context, userID string, now time.Time, limit int) ([]hifz.State, error) {
	q := `
		SELECT surah, ayah, repetitions, interval_days, ease, streak, status,
		       last_quality, last_reviewed, next_review
		FROM   user_memorization
		WHERE  user_id = ?
		  AND  (next_review IS NULL OR next_review <= ?)
		ORDER  BY next_review IS NOT NULL, next_review, surah, ayah`

	args := []any{userID, now.UnixMicro()}
	if limit > 0 {
		args = append(args, limit)
		q += "\nLIMIT ?"
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("hifz store: due: %w", err)
	}
	defer rows.Close()

	states := []hifz.State{}
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("hifz store: due: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hifz store: due: %w", err)
	}
	return states, nil
}

// SaveSummary implements [hifz.SummaryStore].
func (s *Store) SaveSummary(ctx context.Context, summary hifz.Summary) error {
	const q = `
		INSERT INTO user_analyses (user_id, surah, ayah, kind, score, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	created := summary.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, q,
		summary.UserID,
		summary.Verse.Surah,
		summary.Verse.Ayah,
		summary.Kind,
		summary.Score,
		summary.Detail,
		created.UnixMicro(),
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
		WHERE  user_id = ?
		ORDER  BY created_at DESC, id DESC`

	args := []any{userID}
	if limit > 0 {
		args = append(args, limit)
		q += "\nLIMIT ?"
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("hifz store: recent summaries: %w", err)
	}
	defer rows.Close()

	summaries := []hifz.Summary{}
	for rows.Next() {
		var (
			sm      hifz.Summary
			created int64
		)
		if err := rows.Scan(&sm.UserID, &sm.Verse.Surah, &sm.Verse.Ayah, &sm.Kind, &sm.Score, &sm.Detail, &created); err != nil {
			return nil, fmt.Errorf("hifz store: recent summaries: %w", err)
		}
		sm.CreatedAt = time.UnixMicro(created)
		summaries = append(summaries, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hifz store: recent summaries: %w", err)
	}
	return summaries, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanState(row scanner) (hifz.State, error) {
	var (
		st           hifz.State
		status       string
		lastReviewed sql.NullInt64
		nextReview   sql.NullInt64
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
	if lastReviewed.Valid {
		st.LastReviewed = time.UnixMicro(lastReviewed.Int64)
	}
	if nextReview.Valid {
		st.NextReview = time.UnixMicro(nextReview.Int64)
	}
	return st, nil
}

// encodeTime maps the zero time to SQL NULL, otherwise Unix microseconds.
func encodeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMicro()
}
