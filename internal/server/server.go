// Package server exposes the recitation evaluation engine over HTTP.
//
// JSON endpoints:
//
//   - POST /v1/evaluate     — pitch evaluation of a recording against a reference
//   - POST /v1/tajweed      — Tajweed validation of Arabic text
//   - POST /v1/memorization — transcribe a recording and compare it to the verse
//   - POST /v1/review       — record one spaced-repetition review
//   - GET  /v1/due          — the user's review queue
//   - GET  /v1/history      — recent evaluation summaries
//   - GET  /v1/live         — websocket stream of per-word feedback
//
// Plus the operational endpoints /healthz, /readyz and /metrics. Audio is
// carried as base64-encoded 16-bit mono WAV inside the JSON body.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tartil-app/tartil/internal/health"
	"github.com/tartil-app/tartil/internal/hifz"
	"github.com/tartil-app/tartil/internal/observe"
	"github.com/tartil-app/tartil/internal/recite"
	"github.com/tartil-app/tartil/internal/tajweed"
	"github.com/tartil-app/tartil/internal/textcheck"
	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/asr"
	"github.com/tartil-app/tartil/pkg/provider/verses"
)

// maxBodyBytes caps request bodies. A minute of 16-bit 44.1 kHz mono WAV is
// about 5 MB; base64 inflates it by a third.
const maxBodyBytes = 32 << 20

// referenceFetchTimeout bounds the download of reference recitation audio.
const referenceFetchTimeout = 30 * time.Second

// Server holds the handler dependencies. Optional collaborators may be nil;
// the endpoints that need them then answer 503.
type Server struct {
	log     *slog.Logger
	metrics *observe.Metrics

	engine     *recite.Engine
	validator  *tajweed.Validator
	recognizer asr.Recognizer
	verses     verses.Source
	scheduler  *hifz.Scheduler
	summaries  hifz.SummaryStore

	httpClient    *http.Client
	minSimilarity float64
	minQuality    int
	maxQuality    int

	ready []health.Checker
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the server's logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithEngine enables the pitch evaluation endpoints.
func WithEngine(e *recite.Engine) Option {
	return func(s *Server) { s.engine = e }
}

// WithRecognizer enables the memorization and live feedback endpoints.
func WithRecognizer(r asr.Recognizer) Option {
	return func(s *Server) { s.recognizer = r }
}

// WithVerses sets the verse text and recitation audio source.
func WithVerses(src verses.Source) Option {
	return func(s *Server) { s.verses = src }
}

// WithScheduler enables the review endpoints.
func WithScheduler(sched *hifz.Scheduler) Option {
	return func(s *Server) { s.scheduler = sched }
}

// WithSummaryStore enables evaluation history persistence.
func WithSummaryStore(store hifz.SummaryStore) Option {
	return func(s *Server) { s.summaries = store }
}

// WithHTTPClient overrides the client used to fetch reference audio.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.httpClient = c }
}

// WithMinSimilarity sets the word-similarity cutoff for memorization checks.
// Defaults to [textcheck.DefaultSimilarity].
func WithMinSimilarity(v float64) Option {
	return func(s *Server) {
		if v > 0 {
			s.minSimilarity = v
		}
	}
}

// WithQualityBounds restricts the accepted review quality range.
// Defaults to 1–5.
func WithQualityBounds(min, max int) Option {
	return func(s *Server) {
		if min >= 1 && max <= 5 && min <= max {
			s.minQuality, s.maxQuality = min, max
		}
	}
}

// WithReadyCheck adds a readiness probe evaluated by /readyz.
func WithReadyCheck(c health.Checker) Option {
	return func(s *Server) { s.ready = append(s.ready, c) }
}

// New returns a Server with the given validator and options applied.
func New(validator *tajweed.Validator, opts ...Option) *Server {
	s := &Server{
		log:           slog.Default(),
		validator:     validator,
		httpClient:    &http.Client{Timeout: referenceFetchTimeout},
		minSimilarity: textcheck.DefaultSimilarity,
		minQuality:    1,
		maxQuality:    5,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the complete route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /v1/tajweed", s.handleTajweed)
	mux.HandleFunc("POST /v1/memorization", s.handleMemorization)
	mux.HandleFunc("POST /v1/review", s.handleReview)
	mux.HandleFunc("GET /v1/due", s.handleDue)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.HandleFunc("GET /v1/live", s.handleLive)

	health.New(s.ready...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// ─── Evaluate ────────────────────────────────────────────────────────────────

type evaluateRequest struct {
	UserID string `json:"user_id"`
	Surah  int    `json:"surah"`
	Ayah   int    `json:"ayah"`

	// AudioWAV is the learner's recording, base64-encoded WAV.
	AudioWAV string `json:"audio_wav"`

	// ReferenceWAV is the reference recording. When empty, the reference is
	// fetched from the configured verse source instead.
	ReferenceWAV string `json:"reference_wav,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "pitch evaluation is not configured")
		return
	}

	var req evaluateRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, ok := s.decodeWAV(w, req.AudioWAV, "audio_wav")
	if !ok {
		return
	}

	var reference audio.Signal
	if req.ReferenceWAV != "" {
		reference, ok = s.decodeWAV(w, req.ReferenceWAV, "reference_wav")
		if !ok {
			return
		}
	} else {
		var err error
		reference, err = s.fetchReference(r.Context(), req.Surah, req.Ayah)
		if err != nil {
			s.log.Warn("reference fetch failed", "surah", req.Surah, "ayah", req.Ayah, "err", err)
			writeError(w, http.StatusBadGateway, "could not fetch reference recitation")
			return
		}
	}

	start := time.Now()
	eval, err := s.engine.Evaluate(r.Context(), user, reference)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.metrics.EvaluateDuration.Record(r.Context(), time.Since(start).Seconds())
	s.metrics.RecordEvaluation(r.Context(), "pitch")

	s.saveSummary(r.Context(), req.UserID, req.Surah, req.Ayah, "pitch", eval.Stats.AccuracyPct, eval)
	writeJSON(w, http.StatusOK, eval)
}

// fetchReference downloads and decodes the reference recitation for a verse.
func (s *Server) fetchReference(ctx context.Context, surah, ayah int) (audio.Signal, error) {
	if s.verses == nil {
		return audio.Signal{}, errors.New("server: no verse source configured")
	}
	url, err := s.verses.RecitationURL(ctx, surah, ayah)
	if err != nil {
		return audio.Signal{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return audio.Signal{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return audio.Signal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return audio.Signal{}, fmt.Errorf("server: reference download: status %d", resp.StatusCode)
	}
	return audio.DecodeWAV(io.LimitReader(resp.Body, maxBodyBytes))
}

// ─── Tajweed ─────────────────────────────────────────────────────────────────

type tajweedRequest struct {
	UserID string `json:"user_id,omitempty"`
	Surah  int    `json:"surah,omitempty"`
	Ayah   int    `json:"ayah,omitempty"`
	Text   string `json:"text"`
}

func (s *Server) handleTajweed(w http.ResponseWriter, r *http.Request) {
	var req tajweedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	report := s.validator.Validate(req.Text)
	s.metrics.TajweedDuration.Record(r.Context(), time.Since(start).Seconds())
	s.metrics.RecordEvaluation(r.Context(), "tajweed")

	s.saveSummary(r.Context(), req.UserID, req.Surah, req.Ayah, "tajweed", float64(report.Score), report)
	writeJSON(w, http.StatusOK, report)
}

// ─── Memorization ────────────────────────────────────────────────────────────

type memorizationRequest struct {
	UserID   string `json:"user_id"`
	Surah    int    `json:"surah"`
	Ayah     int    `json:"ayah"`
	AudioWAV string `json:"audio_wav"`
}

type memorizationResponse struct {
	Transcript string           `json:"transcript"`
	Check      textcheck.Result `json:"check"`
}

func (s *Server) handleMemorization(w http.ResponseWriter, r *http.Request) {
	if s.recognizer == nil || s.verses == nil {
		writeError(w, http.StatusServiceUnavailable, "memorization check is not configured")
		return
	}

	var req memorizationRequest
	if !s.decode(w, r, &req) {
		return
	}
	signal, ok := s.decodeWAV(w, req.AudioWAV, "audio_wav")
	if !ok {
		return
	}

	verse, err := s.verses.Verse(r.Context(), req.Surah, req.Ayah)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	transcript, err := s.recognizer.Recognize(r.Context(), signal)
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), s.recognizer.ModelID(), "asr")
		writeError(w, http.StatusBadGateway, "transcription failed")
		s.log.Warn("transcription failed", "err", err)
		return
	}
	s.metrics.TranscribeDuration.Record(r.Context(), time.Since(start).Seconds())

	check := textcheck.Compare(verse.Text, transcript.Text, s.minSimilarity)
	s.metrics.RecordEvaluation(r.Context(), "memorization")

	resp := memorizationResponse{Transcript: transcript.Text, Check: check}
	s.saveSummary(r.Context(), req.UserID, req.Surah, req.Ayah, "memorization", check.Score, resp)
	writeJSON(w, http.StatusOK, resp)
}

// ─── Review ──────────────────────────────────────────────────────────────────

type reviewRequest struct {
	UserID  string `json:"user_id"`
	Surah   int    `json:"surah"`
	Ayah    int    `json:"ayah"`
	Quality int    `json:"quality"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "review scheduling is not configured")
		return
	}

	var req reviewRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Quality < s.minQuality || req.Quality > s.maxQuality {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("quality %d is outside [%d, %d]", req.Quality, s.minQuality, s.maxQuality))
		return
	}

	state, err := s.scheduler.Review(r.Context(), req.UserID, hifz.VerseKey{Surah: req.Surah, Ayah: req.Ayah}, req.Quality)
	if err != nil {
		if errors.Is(err, hifz.ErrQualityOutOfRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("review failed", "user", req.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "review failed")
		return
	}
	s.metrics.RecordReview(r.Context(), string(state.Status), req.Quality)

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "review scheduling is not configured")
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	states, err := s.scheduler.DueVerses(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("due queue failed", "user", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "due queue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"due": states})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.summaries == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	summaries, err := s.summaries.RecentSummaries(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("history failed", "user", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "history failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// saveSummary persists one evaluation result when both a summary store and a
// user are present. Persistence failures are logged, not surfaced — the
// evaluation itself succeeded.
func (s *Server) saveSummary(ctx context.Context, userID string, surah, ayah int, kind string, score float64, detail any) {
	if s.summaries == nil || userID == "" {
		return
	}
	doc, err := json.Marshal(detail)
	if err != nil {
		s.log.Warn("summary encode failed", "kind", kind, "err", err)
		doc = nil
	}
	summary := hifz.Summary{
		UserID:    userID,
		Verse:     hifz.VerseKey{Surah: surah, Ayah: ayah},
		Kind:      kind,
		Score:     score,
		Detail:    doc,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.summaries.SaveSummary(ctx, summary); err != nil {
		s.log.Warn("summary save failed", "kind", kind, "user", userID, "err", err)
	}
}

// decode reads a JSON request body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// decodeWAV turns a base64 WAV field into a signal, answering 400 on failure.
func (s *Server) decodeWAV(w http.ResponseWriter, encoded, field string) (audio.Signal, bool) {
	if encoded == "" {
		writeError(w, http.StatusBadRequest, field+" is required")
		return audio.Signal{}, false
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		writeError(w, http.StatusBadRequest, field+" is not valid base64")
		return audio.Signal{}, false
	}
	signal, err := audio.DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, field+": "+err.Error())
		return audio.Signal{}, false
	}
	return signal, true
}

// queryLimit parses the optional limit query parameter.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
