package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tartil-app/tartil/internal/hifz"
	"github.com/tartil-app/tartil/internal/hifz/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

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
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	state := hifz.State{
		Verse:        hifz.VerseKey{Surah: 2, Ayah: 255},
		Repetitions:  2,
		IntervalDays: 6,
		Ease:         2.7,
		Streak:       2,
		Status:       hifz.StatusLearning,
		LastQuality:  4,
		LastReviewed: now,
		NextReview:   now.AddDate(0, 0, 6),
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
	if got.Repetitions != 2 || got.IntervalDays != 6 || got.Ease != 2.7 || got.LastQuality != 4 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.NextReview.Equal(state.NextReview) {
		t.Errorf("NextReview = %v, want %v", got.NextReview, state.NextReview)
	}
	if got.Status != hifz.StatusLearning {
		t.Errorf("Status = %q, want learning", got.Status)
	}
}

func TestStore_PutIsUpsert(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	verse := hifz.VerseKey{Surah: 1, Ayah: 1}

	if err := store.Put(ctx, "user-1", hifz.NewState(verse)); err != nil {
		t.Fatal(err)
	}
	updated := hifz.NewState(verse)
	updated.Streak = 4
	if err := store.Put(ctx, "user-1", updated); err != nil {
		t.Fatalf("Put over existing row: %v", err)
	}

	got, err := store.Get(ctx, "user-1", verse)
	if err != nil {
		t.Fatal(err)
	}
	if got.Streak != 4 {
		t.Errorf("Streak = %d, want 4 after upsert", got.Streak)
	}
}

func TestStore_DueOrdering(t *testing.T) {
	t.Parallel()

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
	if due[0].Verse != fresh.Verse || due[1].Verse != overdue.Verse {
		t.Errorf("order = %s, %s, want %s then %s", due[0].Verse, due[1].Verse, fresh.Verse, overdue.Verse)
	}

	limited, err := store.Due(ctx, "user-1", now, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited due count = %d, want 1", len(limited))
	}
}

func TestStore_Summaries(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, kind := range []string{"pitch", "tajweed"} {
		err := store.SaveSummary(ctx, hifz.Summary{
			UserID:    "user-1",
			Verse:     hifz.VerseKey{Surah: 1, Ayah: 1},
			Kind:      kind,
			Score:     float64(90 - i),
			Detail:    []byte(`{"violations":1}`),
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
	if got[0].Kind != "tajweed" || got[1].Kind != "pitch" {
		t.Errorf("order = %s, %s, want tajweed then pitch", got[0].Kind, got[1].Kind)
	}
	if string(got[0].Detail) != `{"violations":1}` {
		t.Errorf("Detail = %s", got[0].Detail)
	}
}

func TestStore_FileBacked(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "tartil.db")
	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore(%s): %v", path, err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "user-1", hifz.NewState(hifz.VerseKey{Surah: 1, Ayah: 1})); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, "user-1", hifz.VerseKey{Surah: 1, Ayah: 1})
	if err != nil || got == nil {
		t.Fatalf("Get = %+v, %v", got, err)
	}
}
