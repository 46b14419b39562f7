// Package recite runs the full recitation evaluation pipeline: align the
// learner's recording against the reference, split both into fixed windows,
// track pitch per window, score the deviations and render feedback.
//
// The pipeline is pure orchestration — the acoustic work happens in the
// configured [pitch.Tracker] backend and the scoring math lives in
// internal/analysis. One Engine serves concurrent evaluations.
package recite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tartil-app/tartil/internal/analysis/align"
	"github.com/tartil-app/tartil/internal/analysis/feedback"
	"github.com/tartil-app/tartil/internal/analysis/pitch"
	"github.com/tartil-app/tartil/internal/analysis/segment"
	"github.com/tartil-app/tartil/pkg/audio"
	pitchprovider "github.com/tartil-app/tartil/pkg/provider/pitch"
)

// DefaultConcurrency caps how many segments are tracked at once. Pitch
// backends are CPU-bound sidecars; a small fan-out keeps them busy without
// flooding them.
const DefaultConcurrency = 4

// SegmentResult is the evaluation of one fixed-interval window.
type SegmentResult struct {
	// Index is the 0-based window position.
	Index int `json:"index"`

	// Start is the window's offset in the learner's recording.
	Start time.Duration `json:"start"`

	// Duration is the window's actual length; the final window may be short.
	Duration time.Duration `json:"duration"`

	// Deviations are the reported pitch deviations of this window.
	// Timestamps are relative to the whole recording; FrameIndex is relative
	// to this window's contour.
	Deviations []pitch.Deviation `json:"deviations"`

	// Feedback renders Deviations for display.
	Feedback []feedback.DisplayItem `json:"feedback"`

	// Stats aggregates all voiced frame pairs of this window.
	Stats pitch.Statistics `json:"stats"`
}

// Evaluation is the complete result of comparing one recording against its
// reference.
type Evaluation struct {
	// OffsetSamples is how many samples of the reference were skipped to
	// line its first word up with the learner's.
	OffsetSamples int `json:"offset_samples"`

	Segments []SegmentResult `json:"segments"`

	// Deviations and Feedback flatten the per-segment results in time order.
	Deviations []pitch.Deviation      `json:"deviations"`
	Feedback   []feedback.DisplayItem `json:"feedback"`

	// Stats aggregates every voiced frame pair across all segments.
	Stats pitch.Statistics `json:"stats"`

	// Summary is the overall verdict.
	Summary feedback.Summary `json:"summary"`
}

// Engine evaluates recitations. Create one with [New]; safe for concurrent
// use.
type Engine struct {
	tracker pitchprovider.Tracker
	log     *slog.Logger

	silenceThreshold float64
	segmentSeconds   float64
	pitchThresholdHz float64
	concurrency      int
}

// Option is a functional option for [New].
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithSilenceThreshold sets the amplitude above which a sample counts as the
// onset of speech. Defaults to [align.DefaultThreshold].
func WithSilenceThreshold(threshold float64) Option {
	return func(e *Engine) { e.silenceThreshold = threshold }
}

// WithSegmentInterval sets the analysis window length in seconds. Defaults
// to [segment.DefaultIntervalSeconds].
func WithSegmentInterval(seconds float64) Option {
	return func(e *Engine) { e.segmentSeconds = seconds }
}

// WithPitchThreshold sets the deviation reporting threshold in Hz. Defaults
// to [pitch.DefaultThresholdHz].
func WithPitchThreshold(hz float64) Option {
	return func(e *Engine) { e.pitchThresholdHz = hz }
}

// WithConcurrency caps the number of windows tracked in parallel. Defaults
// to [DefaultConcurrency].
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New returns an Engine that uses tracker for pitch detection.
func New(tracker pitchprovider.Tracker, opts ...Option) *Engine {
	e := &Engine{
		tracker:          tracker,
		log:              slog.Default(),
		silenceThreshold: align.DefaultThreshold,
		segmentSeconds:   segment.DefaultIntervalSeconds,
		pitchThresholdHz: pitch.DefaultThresholdHz,
		concurrency:      DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate compares the learner's recording against the reference recording
// and returns the scored evaluation. The reference is resampled to the
// learner's rate when the rates differ.
func (e *Engine) Evaluate(ctx context.Context, user, reference audio.Signal) (*Evaluation, error) {
	if user.Len() == 0 {
		return nil, fmt.Errorf("recite: user recording is empty")
	}
	if reference.Len() == 0 {
		return nil, fmt.Errorf("recite: reference recording is empty")
	}
	if user.SampleRate <= 0 {
		return nil, fmt.Errorf("recite: user sample rate must be positive, got %d", user.SampleRate)
	}
	if reference.SampleRate != user.SampleRate {
		reference = reference.Resample(user.SampleRate)
	}

	offset, alignedRef, err := align.Align(user, reference, e.silenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("recite: align: %w", err)
	}

	userSegs, err := segment.Split(user, e.segmentSeconds)
	if err != nil {
		return nil, fmt.Errorf("recite: segment user: %w", err)
	}
	refSegs, err := segment.Split(alignedRef, e.segmentSeconds)
	if err != nil {
		return nil, fmt.Errorf("recite: segment reference: %w", err)
	}
	pairs := segment.Zip(userSegs, refSegs)

	results := make([]SegmentResult, len(pairs))
	contours := make([]struct{ user, ref audio.Contour }, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, pair := range pairs {
		g.Go(func() error {
			res, userContour, refContour, err := e.evaluateSegment(gctx, i, pair)
			if err != nil {
				return err
			}
			results[i] = res
			contours[i].user = userContour
			contours[i].ref = refContour
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	eval := &Evaluation{
		OffsetSamples: offset,
		Segments:      results,
	}
	for _, res := range results {
		eval.Deviations = append(eval.Deviations, res.Deviations...)
		eval.Feedback = append(eval.Feedback, res.Feedback...)
	}

	eval.Stats, err = overallStats(contours, e.pitchThresholdHz)
	if err != nil {
		return nil, fmt.Errorf("recite: overall stats: %w", err)
	}
	eval.Summary = feedback.Summarize(eval.Deviations)

	e.log.Info("evaluated recitation",
		"segments", len(results),
		"offsetSamples", offset,
		"deviations", len(eval.Deviations),
		"accuracyPct", eval.Stats.AccuracyPct,
	)
	return eval, nil
}

// evaluateSegment tracks and scores one window pair.
func (e *Engine) evaluateSegment(ctx context.Context, index int, pair segment.Pair) (SegmentResult, audio.Contour, audio.Contour, error) {
	userContour, err := e.tracker.Track(ctx, pair.User)
	if err != nil {
		return SegmentResult{}, audio.Contour{}, audio.Contour{}, fmt.Errorf("recite: track segment %d: %w", index, err)
	}
	refContour, err := e.tracker.Track(ctx, pair.Reference)
	if err != nil {
		return SegmentResult{}, audio.Contour{}, audio.Contour{}, fmt.Errorf("recite: track reference segment %d: %w", index, err)
	}

	deviations, err := pitch.Score(userContour, refContour, e.pitchThresholdHz)
	if err != nil {
		return SegmentResult{}, audio.Contour{}, audio.Contour{}, fmt.Errorf("recite: score segment %d: %w", index, err)
	}
	stats, err := pitch.Stats(userContour, refContour, e.pitchThresholdHz)
	if err != nil {
		return SegmentResult{}, audio.Contour{}, audio.Contour{}, fmt.Errorf("recite: stats segment %d: %w", index, err)
	}

	// Windows are fixed-length, so the offset of window i is i intervals.
	start := time.Duration(float64(index) * e.segmentSeconds * float64(time.Second))
	for j := range deviations {
		deviations[j].Timestamp += start
	}

	res := SegmentResult{
		Index:      index,
		Start:      start,
		Duration:   pair.User.Duration(),
		Deviations: deviations,
		Feedback:   feedback.Format(deviations),
		Stats:      stats,
	}
	e.log.Debug("evaluated segment",
		"segment", index,
		"deviations", len(deviations),
		"validFrames", stats.ValidFrames,
	)
	return res, userContour, refContour, nil
}

// overallStats concatenates the per-window contours and scores them as one
// comparison, so the whole-recording figures are exact rather than merged
// approximations.
func overallStats(contours []struct{ user, ref audio.Contour }, thresholdHz float64) (pitch.Statistics, error) {
	if len(contours) == 0 {
		return pitch.Statistics{AccuracyPct: 100}, nil
	}

	user := audio.Contour{
		HopLength:  contours[0].user.HopLength,
		SampleRate: contours[0].user.SampleRate,
	}
	ref := audio.Contour{
		HopLength:  contours[0].ref.HopLength,
		SampleRate: contours[0].ref.SampleRate,
	}
	for _, c := range contours {
		// Truncate both sides to the compared frame count so a length
		// mismatch in one window cannot shift later windows out of step.
		n := min(c.user.Len(), c.ref.Len())
		user.Frequencies = append(user.Frequencies, c.user.Frequencies[:n]...)
		ref.Frequencies = append(ref.Frequencies, c.ref.Frequencies[:n]...)
	}
	return pitch.Stats(user, ref, thresholdHz)
}
