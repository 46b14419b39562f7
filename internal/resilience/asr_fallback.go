package resilience

import (
	"context"

	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/asr"
)

// ASRFallback implements [asr.Recognizer] with automatic failover across
// multiple recognition backends. Each backend has its own circuit breaker, so
// a crashed whisper sidecar is bypassed quickly instead of timing out every
// request.
type ASRFallback struct {
	group *FallbackGroup[asr.Recognizer]
}

// Compile-time interface assertion.
var _ asr.Recognizer = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred
// backend.
func NewASRFallback(primary asr.Recognizer, primaryName string, cfg FallbackConfig) *ASRFallback {
	return &ASRFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognizer as a fallback.
func (f *ASRFallback) AddFallback(name string, recognizer asr.Recognizer) {
	f.group.AddFallback(name, recognizer)
}

// Recognize transcribes the signal with the first healthy backend.
func (f *ASRFallback) Recognize(ctx context.Context, signal audio.Signal) (asr.Transcript, error) {
	return ExecuteWithResult(f.group, func(r asr.Recognizer) (asr.Transcript, error) {
		return r.Recognize(ctx, signal)
	})
}

// ModelID reports the primary backend's model identifier.
func (f *ASRFallback) ModelID() string {
	return f.group.entries[0].value.ModelID()
}
