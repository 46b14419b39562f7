// Package asr defines the Recognizer interface for speech-recognition
// backends.
//
// A recognizer transcribes a complete recorded recitation in one call —
// evaluation works on finished recordings, so there is no streaming surface
// here. Word-level timing is optional; backends that cannot produce it
// return a transcript with a nil Words slice.
//
// Implementations must be safe for concurrent use.
package asr

import (
	"context"
	"time"

	"github.com/tartil-app/tartil/pkg/audio"
)

// Word holds per-word detail from recognizers that support it.
type Word struct {
	// Word is the recognised token.
	Word string `json:"word"`

	// Start and End are offsets from the beginning of the recording.
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`

	// Confidence is the per-word confidence (0.0–1.0). May be zero if the
	// backend does not report it.
	Confidence float64 `json:"confidence"`
}

// Transcript is the result of recognising one recording.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string `json:"text"`

	// Language is the detected or configured language tag (e.g., "ar").
	Language string `json:"language,omitempty"`

	// Words contains per-word detail when the backend supports it.
	Words []Word `json:"words,omitempty"`
}

// Recognizer is the abstraction over any speech-recognition backend.
type Recognizer interface {
	// Recognize transcribes the signal. Returns an error if the backend
	// request fails or ctx is cancelled.
	Recognize(ctx context.Context, signal audio.Signal) (Transcript, error)

	// ModelID returns the backend-specific model identifier (e.g.,
	// "whisper-large-v3"). Useful for logging.
	ModelID() string
}
