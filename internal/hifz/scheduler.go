package hifz

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// lockStripes sizes the scheduler's mutex table. Reviews for different
// verses proceed in parallel; two reviews of the same (user, verse) pair
// hash to the same stripe and serialize.
const lockStripes = 64

// Scheduler runs SM-2 reviews against a [Store], guaranteeing at most one
// concurrent writer per (user, verse) pair so a read-modify-write review
// cannot lose an update.
type Scheduler struct {
	store Store
	locks [lockStripes]sync.Mutex

	// now is replaceable in tests.
	now func() time.Time
}

// SchedulerOption configures a [Scheduler].
type SchedulerOption func(*Scheduler)

// WithClock overrides the scheduler's time source.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler returns a Scheduler over the given store.
func NewScheduler(store Store, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) stripe(userID string, verse VerseKey) *sync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s/%d:%d", userID, verse.Surah, verse.Ayah)
	return &s.locks[h.Sum32()%lockStripes]
}

// Review records one recall attempt for a verse and returns the updated
// state. A verse never seen before starts from [NewState].
func (s *Scheduler) Review(ctx context.Context, userID string, verse VerseKey, quality int) (State, error) {
	if !verse.Valid() {
		return State{}, fmt.Errorf("hifz: invalid verse key %s", verse)
	}

	mu := s.stripe(userID, verse)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.store.Get(ctx, userID, verse)
	if err != nil {
		return State{}, fmt.Errorf("hifz: review %s: %w", verse, err)
	}
	if current == nil {
		st := NewState(verse)
		current = &st
	}

	next, err := current.Apply(quality, s.now())
	if err != nil {
		return State{}, err
	}
	if err := s.store.Put(ctx, userID, next); err != nil {
		return State{}, fmt.Errorf("hifz: review %s: %w", verse, err)
	}
	return next, nil
}

// DueVerses returns the user's review queue as of now: verses never
// reviewed first, then by oldest due date. limit caps the result; 0 means
// no cap.
func (s *Scheduler) DueVerses(ctx context.Context, userID string, limit int) ([]State, error) {
	states, err := s.store.Due(ctx, userID, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("hifz: due verses: %w", err)
	}
	return states, nil
}

// Track registers a verse for memorization without reviewing it, so it shows
// up in the due queue. Tracking an already-tracked verse is a no-op.
func (s *Scheduler) Track(ctx context.Context, userID string, verse VerseKey) (State, error) {
	if !verse.Valid() {
		return State{}, fmt.Errorf("hifz: invalid verse key %s", verse)
	}

	mu := s.stripe(userID, verse)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.store.Get(ctx, userID, verse)
	if err != nil {
		return State{}, fmt.Errorf("hifz: track %s: %w", verse, err)
	}
	if current != nil {
		return *current, nil
	}
	st := NewState(verse)
	if err := s.store.Put(ctx, userID, st); err != nil {
		return State{}, fmt.Errorf("hifz: track %s: %w", verse, err)
	}
	return st, nil
}
