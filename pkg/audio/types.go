// Package audio defines the in-memory audio data types shared by the
// analysis pipeline and the collaborator providers: the raw [Signal] and the
// per-frame pitch [Contour] produced by a pitch tracker.
//
// Decoding audio files and capturing microphone input are host-application
// concerns; the engine only ever sees decoded samples.
package audio

import "time"

// Signal is a mono audio signal held fully in memory: an ordered sequence of
// amplitude samples at a fixed sample rate. Samples are normalised floats in
// [-1, 1] as produced by the host's decoder.
//
// A Signal is owned exclusively by the analysis request that created it and
// is never mutated by the engine.
type Signal struct {
	// Samples holds the amplitude values. May be empty.
	Samples []float64

	// SampleRate in Hz. Must be > 0 for any non-degenerate signal.
	SampleRate int
}

// Len returns the number of samples.
func (s Signal) Len() int { return len(s.Samples) }

// Duration returns the playback duration of the signal.
// Returns 0 when the sample rate is not set.
func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// Slice returns the sub-signal covering [from, to), clamped to the valid
// sample range. The returned Signal shares the underlying sample slice.
func (s Signal) Slice(from, to int) Signal {
	if from < 0 {
		from = 0
	}
	if to > len(s.Samples) {
		to = len(s.Samples)
	}
	if from >= to {
		return Signal{Samples: nil, SampleRate: s.SampleRate}
	}
	return Signal{Samples: s.Samples[from:to], SampleRate: s.SampleRate}
}

// Contour is a pitch contour: one fundamental-frequency estimate per analysis
// frame, all frames sharing a single hop length and sample rate.
//
// A frequency ≤ 0 encodes an unvoiced (silent) frame. Unvoiced frames are
// excluded from all deviation math downstream.
type Contour struct {
	// Frequencies holds one value in Hz per frame, in frame order.
	Frequencies []float64

	// HopLength is the number of samples between consecutive frames.
	HopLength int

	// SampleRate of the signal the contour was extracted from, in Hz.
	SampleRate int
}

// Len returns the number of frames in the contour.
func (c Contour) Len() int { return len(c.Frequencies) }

// FrameTime returns the time offset of frame i from the start of the
// analysed signal (i × hop / sampleRate).
func (c Contour) FrameTime(i int) time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(i) * float64(c.HopLength) / float64(c.SampleRate) * float64(time.Second))
}

// Voiced reports whether frame i carries a detected fundamental frequency.
func (c Contour) Voiced(i int) bool {
	return i >= 0 && i < len(c.Frequencies) && c.Frequencies[i] > 0
}
