// Package mock provides a test double for the asr.Recognizer interface.
//
// Example:
//
//	rec := &mock.Recognizer{
//	    RecognizeResult: asr.Transcript{Text: "بسم الله"},
//	}
//	transcript, _ := rec.Recognize(ctx, signal)
package mock

import (
	"context"
	"sync"

	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/asr"
)

// RecognizeCall records a single invocation of Recognize.
type RecognizeCall struct {
	// Ctx is the context passed to Recognize.
	Ctx context.Context
	// Signal is the signal passed to Recognize.
	Signal audio.Signal
}

// Recognizer is a mock implementation of asr.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// RecognizeFunc, if non-nil, computes the result per call and takes
	// precedence over RecognizeResult/RecognizeErr.
	RecognizeFunc func(ctx context.Context, signal audio.Signal) (asr.Transcript, error)

	// RecognizeResult is returned by Recognize when RecognizeFunc is nil.
	RecognizeResult asr.Transcript

	// RecognizeErr, if non-nil, is returned as the error from Recognize.
	RecognizeErr error

	// ModelIDValue is returned by ModelID. Defaults to "mock".
	ModelIDValue string

	// --- Call records ---

	// RecognizeCalls records every call to Recognize in order.
	RecognizeCalls []RecognizeCall
}

// Recognize records the call and returns the configured result.
func (r *Recognizer) Recognize(ctx context.Context, signal audio.Signal) (asr.Transcript, error) {
	r.mu.Lock()
	r.RecognizeCalls = append(r.RecognizeCalls, RecognizeCall{Ctx: ctx, Signal: signal})
	fn := r.RecognizeFunc
	result, err := r.RecognizeResult, r.RecognizeErr
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, signal)
	}
	return result, err
}

// ModelID returns ModelIDValue, or "mock" when unset.
func (r *Recognizer) ModelID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ModelIDValue == "" {
		return "mock"
	}
	return r.ModelIDValue
}

// Reset clears all recorded calls. Thread-safe.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RecognizeCalls = nil
}

// Ensure Recognizer implements asr.Recognizer at compile time.
var _ asr.Recognizer = (*Recognizer)(nil)
