// Package mock provides a test double for the verses.Source interface.
//
// Example:
//
//	src := &mock.Source{
//	    Verses: map[string]verses.Verse{
//	        "1:1": {Surah: 1, Ayah: 1, Text: "بِسْمِ اللَّهِ"},
//	    },
//	}
//	verse, _ := src.Verse(ctx, 1, 1)
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/tartil-app/tartil/pkg/provider/verses"
)

// Source is a mock implementation of verses.Source.
type Source struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Verses maps "surah:ayah" keys to canned verses. A lookup miss returns
	// an error, like the real API does for a verse that does not exist.
	Verses map[string]verses.Verse

	// VerseErr, if non-nil, is returned from every Verse call.
	VerseErr error

	// AyahCounts maps surah numbers to canned counts. A lookup miss returns
	// an error.
	AyahCounts map[int]int

	// AyahCountErr, if non-nil, is returned from every AyahCount call.
	AyahCountErr error

	// RecitationURLResult is returned by RecitationURL.
	RecitationURLResult string

	// RecitationURLErr, if non-nil, is returned from every RecitationURL call.
	RecitationURLErr error

	// --- Call records ---

	// VerseCalls records the "surah:ayah" key of every Verse call in order.
	VerseCalls []string

	// AyahCountCalls records the surah number of every AyahCount call in order.
	AyahCountCalls []int

	// RecitationURLCalls records the key of every RecitationURL call in order.
	RecitationURLCalls []string
}

// Verse records the call and returns the canned verse for the key.
func (s *Source) Verse(_ context.Context, surah, ayah int) (verses.Verse, error) {
	key := fmt.Sprintf("%d:%d", surah, ayah)

	s.mu.Lock()
	s.VerseCalls = append(s.VerseCalls, key)
	err := s.VerseErr
	verse, ok := s.Verses[key]
	s.mu.Unlock()

	if err != nil {
		return verses.Verse{}, err
	}
	if !ok {
		return verses.Verse{}, fmt.Errorf("mock verses: no verse %s", key)
	}
	return verse, nil
}

// AyahCount records the call and returns the canned count for the surah.
func (s *Source) AyahCount(_ context.Context, surah int) (int, error) {
	s.mu.Lock()
	s.AyahCountCalls = append(s.AyahCountCalls, surah)
	err := s.AyahCountErr
	count, ok := s.AyahCounts[surah]
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("mock verses: no surah %d", surah)
	}
	return count, nil
}

// RecitationURL records the call and returns the configured URL.
func (s *Source) RecitationURL(_ context.Context, surah, ayah int) (string, error) {
	key := fmt.Sprintf("%d:%d", surah, ayah)

	s.mu.Lock()
	s.RecitationURLCalls = append(s.RecitationURLCalls, key)
	result, err := s.RecitationURLResult, s.RecitationURLErr
	s.mu.Unlock()

	return result, err
}

// Reset clears all recorded calls. Thread-safe.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.VerseCalls = nil
	s.AyahCountCalls = nil
	s.RecitationURLCalls = nil
}

// Ensure Source implements verses.Source at compile time.
var _ verses.Source = (*Source)(nil)
