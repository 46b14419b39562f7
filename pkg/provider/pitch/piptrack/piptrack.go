// Package piptrack provides a pitch tracker backed by a librosa piptrack
// sidecar service.
//
// The sidecar exposes a single POST /analyze endpoint that accepts raw
// samples as JSON and returns the per-frame peak frequencies:
//
//	{"sample_rate": 22050, "samples": [0.0, …]}
//	→ {"frequencies": [0.0, 440.0, …], "hop_length": 512}
//
// Example usage:
//
//	tracker, err := piptrack.New("") // connects to http://localhost:8801
//	contour, err := tracker.Track(ctx, signal)
package piptrack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/pitch"
)

// DefaultBaseURL is the default address of a locally running sidecar.
const DefaultBaseURL = "http://localhost:8801"

// Ensure Tracker implements the pitch.Tracker interface at compile time.
var _ pitch.Tracker = (*Tracker)(nil)

// Tracker implements [pitch.Tracker] against the piptrack sidecar.
// Tracker is safe for concurrent use.
type Tracker struct {
	baseURL    string
	httpClient *http.Client
}

// config holds optional configuration collected from functional options.
type config struct {
	timeout time.Duration
}

// Option is a functional option for Tracker.
type Option func(*config)

// WithTimeout sets a per-request HTTP timeout on the underlying HTTP client.
// A zero or negative value means no timeout (the default).
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new sidecar-backed Tracker. baseURL is the address of the
// sidecar; if empty, [DefaultBaseURL] is used.
func New(baseURL string, opts ...Option) (*Tracker, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	httpClient := &http.Client{}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	return &Tracker{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// analyzeRequest is the JSON request body sent to /analyze.
type analyzeRequest struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float64 `json:"samples"`
}

// analyzeResponse is the JSON response body returned by /analyze.
type analyzeResponse struct {
	Frequencies []float64 `json:"frequencies"`
	HopLength   int       `json:"hop_length"`
}

// Track implements [pitch.Tracker].
func (t *Tracker) Track(ctx context.Context, signal audio.Signal) (audio.Contour, error) {
	if signal.SampleRate <= 0 {
		return audio.Contour{}, fmt.Errorf("piptrack: sample rate must be positive, got %d", signal.SampleRate)
	}

	body, err := json.Marshal(analyzeRequest{
		SampleRate: signal.SampleRate,
		Samples:    signal.Samples,
	})
	if err != nil {
		return audio.Contour{}, fmt.Errorf("piptrack: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return audio.Contour{}, fmt.Errorf("piptrack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return audio.Contour{}, fmt.Errorf("piptrack: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return audio.Contour{}, fmt.Errorf("piptrack: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return audio.Contour{}, fmt.Errorf("piptrack: decode response: %w", err)
	}
	if ar.HopLength <= 0 {
		return audio.Contour{}, fmt.Errorf("piptrack: sidecar returned invalid hop length %d", ar.HopLength)
	}

	return audio.Contour{
		Frequencies: ar.Frequencies,
		HopLength:   ar.HopLength,
		SampleRate:  signal.SampleRate,
	}, nil
}

// ModelID implements [pitch.Tracker].
func (t *Tracker) ModelID() string { return "piptrack" }
