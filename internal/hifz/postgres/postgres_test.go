package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tartil-app/tartil/internal/hifz"
	"github.com/tartil-app/tartil/internal/hifz/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if TARTIL_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TARTIL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TARTIL_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS user_analyses CASCADE",
		"DROP TABLE IF EXISTS user_memorization CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("drop schema: %v", err)
		}
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	st, err := store.Get(context.Background(), "user-1", hifz.VerseKey{Surah: 1, Ayah: 1})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st != nil {
		t.Errorf("Get on empty store = %+v, want nil", st)
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	state := hifz.State{
		Verse:        hifz.VerseKey{Surah: 2, Ayah: 255},
		Repetitions:  3,
		IntervalDays: 16,
		Ease:         2.8,
		Streak:       3,
		Status:       hifz.StatusLearning,
		LastQuality:  5,
		LastReviewed: now,
		NextReview:   now.AddDate(0, 0, 16),
	}
	if err := store.Put(ctx, "user-1", state); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "user-1", state.Verse)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil after Put")
	}
	if got.Repetitions != 3 || got.IntervalDays != 16 || got.Streak != 3 || got.LastQuality != 5 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.NextReview.Equal(state.NextReview) {
		t.Errorf("NextReview = %v, want %v", got.NextReview, state.NextReview)
	}
}

func TestStore_PutIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	verse := hifz.VerseKey{Surah: 1, Ayah: 1}

	first := hifz.NewState(verse)
	if err := store.Put(ctx, "user-1", first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.Repetitions = 5
	if err := store.Put(ctx, "user-1", second); err != nil {
		t.Fatalf("Put over existing row: %v", err)
	}

	got, err := store.Get(ctx, "user-1", verse)
	if err != nil {
		t.Fatal(err)
	}
	if got.Repetitions != 5 {
		t.Errorf("Repetitions = %d, want 5 after upsert", got.Repetitions)
	}
}

func TestStore_DueOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := hifz.NewState(hifz.VerseKey{Surah: 1, Ayah: 3})
	overdue := hifz.NewState(hifz.VerseKey{Surah: 1, Ayah: 2})
	overdue.NextReview = now.AddDate(0, 0, -2)
	future := hifz.NewState(hifz.VerseKey{Surah: 1, Ayah: 1})
	future.NextReview = now.AddDate(0, 0, 5)

	for _, st := range []hifz.State{fresh, overdue, future} {
		if err := store.Put(ctx, "user-1", st); err != nil {
			t.Fatal(err)
		}
	}

	due, err := store.Due(ctx, "user-1", now, 0)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due count = %d, want 2: %+v", len(due), due)
	}
	if due[0].Verse != fresh.Verse {
		t.Errorf("first due = %s, want never-reviewed %s", due[0].Verse, fresh.Verse)
	}
	if due[1].Verse != overdue.Verse {
		t.Errorf("second due = %s, want overdue %s", due[1].Verse, overdue.Verse)
	}

	limited, err := store.Due(ctx, "user-1", now, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited due count = %d, want 1", len(limited))
	}
}

func TestStore_DueScopedToUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "user-1", hifz.NewState(hifz.VerseKey{Surah: 1, Ayah: 1})); err != nil {
		t.Fatal(err)
	}
	due, err := store.Due(ctx, "user-2", time.Now(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Errorf("user-2 sees user-1's verses: %+v", due)
	}
}

func TestStore_Summaries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, kind := range []string{"pitch", "tajweed"} {
		err := store.SaveSummary(ctx, hifz.Summary{
			UserID:    "user-1",
			Verse:     hifz.VerseKey{Surah: 1, Ayah: 1},
			Kind:      kind,
			Score:     float64(80 + i),
			Detail:    []byte(`{"deviations":2}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("SaveSummary(%s): %v", kind, err)
		}
	}

	got, err := store.RecentSummaries(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("RecentSummaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("summary count = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Kind != "tajweed" || got[1].Kind != "pitch" {
		t.Errorf("order = %s, %s, want tajweed then pitch", got[0].Kind, got[1].Kind)
	}

	limited, err := store.RecentSummaries(ctx, "user-1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Kind != "tajweed" {
		t.Errorf("limited = %+v, want single newest summary", limited)
	}
}
