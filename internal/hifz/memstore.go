package hifz

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory [Store] and [SummaryStore]. It backs deployments
// with no storage backend configured and the test suites; everything is lost
// on restart.
type MemStore struct {
	mu        sync.RWMutex
	states    map[string]map[VerseKey]State
	summaries map[string][]Summary
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		states:    make(map[string]map[VerseKey]State),
		summaries: make(map[string][]Summary),
	}
}

// Get retrieves the state of one verse for a user.
func (m *MemStore) Get(_ context.Context, userID string, verse VerseKey) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[userID][verse]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// Put upserts the state of one verse for a user.
func (m *MemStore) Put(_ context.Context, userID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[userID] == nil {
		m.states[userID] = make(map[VerseKey]State)
	}
	m.states[userID][state.Verse] = state
	return nil
}

// Due returns the verses due at now, never-reviewed first, then oldest
// NextReview first.
func (m *MemStore) Due(_ context.Context, userID string, now time.Time, limit int) ([]State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	due := []State{}
	for _, st := range m.states[userID] {
		if st.Due(now) {
			due = append(due, st)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.NextReview.IsZero() != b.NextReview.IsZero() {
			return a.NextReview.IsZero()
		}
		if !a.NextReview.Equal(b.NextReview) {
			return a.NextReview.Before(b.NextReview)
		}
		if a.Verse.Surah != b.Verse.Surah {
			return a.Verse.Surah < b.Verse.Surah
		}
		return a.Verse.Ayah < b.Verse.Ayah
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// SaveSummary appends one summary record.
func (m *MemStore) SaveSummary(_ context.Context, summary Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[summary.UserID] = append(m.summaries[summary.UserID], summary)
	return nil
}

// RecentSummaries returns a user's summaries, newest first.
func (m *MemStore) RecentSummaries(_ context.Context, userID string, limit int) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.summaries[userID]
	out := make([]Summary, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var (
	_ Store        = (*MemStore)(nil)
	_ SummaryStore = (*MemStore)(nil)
)
