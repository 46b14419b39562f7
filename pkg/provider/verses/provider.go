// Package verses defines the Source interface for canonical Quran text and
// reference-recitation audio.
//
// A verse source answers two questions: what is the canonical Uthmani text
// of an ayah, and where can a reference recording of it be fetched. The text
// anchors Tajweed validation and memorization checks; the recording is the
// reference side of pitch comparison.
//
// Implementations must be safe for concurrent use.
package verses

import "context"

// Verse is one ayah of canonical text.
type Verse struct {
	Surah int `json:"surah"`
	Ayah  int `json:"ayah"`

	// Text is the Uthmani-script verse text, with diacritics.
	Text string `json:"text"`
}

// Source is the abstraction over any canonical-text backend.
type Source interface {
	// Verse returns the canonical text of one ayah.
	Verse(ctx context.Context, surah, ayah int) (Verse, error)

	// AyahCount returns the number of ayahs in a surah.
	AyahCount(ctx context.Context, surah int) (int, error)

	// RecitationURL returns a fetchable URL for a reference recording of
	// one ayah by the source's configured reciter.
	RecitationURL(ctx context.Context, surah, ayah int) (string, error)
}
