// Package whisper provides a recognizer backed by a whisper.cpp server.
//
// The server (https://github.com/ggml-org/whisper.cpp) exposes a POST
// /inference endpoint that accepts a WAV file as a multipart upload and
// returns the transcription as JSON. The signal is encoded as 16-bit mono
// WAV and resampled to 16 kHz before upload, which is the input format
// whisper models are trained on.
//
// Example usage:
//
//	rec, err := whisper.New("", "ar") // connects to http://localhost:8802
//	transcript, err := rec.Recognize(ctx, signal)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/asr"
)

// DefaultBaseURL is the default address of a locally running whisper server.
const DefaultBaseURL = "http://localhost:8802"

// whisperSampleRate is the input rate whisper models expect.
const whisperSampleRate = 16000

// Ensure Recognizer implements the asr.Recognizer interface at compile time.
var _ asr.Recognizer = (*Recognizer)(nil)

// Recognizer implements [asr.Recognizer] against a whisper.cpp server.
// Recognizer is safe for concurrent use.
type Recognizer struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// config holds optional configuration collected from functional options.
type config struct {
	timeout time.Duration
}

// Option is a functional option for Recognizer.
type Option func(*config)

// WithTimeout sets a per-request HTTP timeout on the underlying HTTP client.
// A zero or negative value means no timeout (the default). Transcription of
// long recordings can take tens of seconds on CPU; size the timeout
// accordingly.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new server-backed Recognizer.
//
// baseURL is the address of the whisper server; if empty, [DefaultBaseURL]
// is used. language is the ISO 639-1 tag passed to the model (e.g., "ar");
// empty lets the model auto-detect.
func New(baseURL, language string, opts ...Option) (*Recognizer, error) {
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

	return &Recognizer{
		baseURL:    baseURL,
		language:   language,
		httpClient: httpClient,
	}, nil
}

// inferenceResponse is the JSON response body returned by /inference with
// response_format=verbose_json. Word timing is present only when the server
// runs with token-level timestamps enabled.
type inferenceResponse struct {
	Text  string `json:"text"`
	Words []struct {
		Word        string  `json:"word"`
		Start       float64 `json:"start"`
		End         float64 `json:"end"`
		Probability float64 `json:"probability"`
	} `json:"words"`
	Language string `json:"language"`
}

// Recognize implements [asr.Recognizer].
func (r *Recognizer) Recognize(ctx context.Context, signal audio.Signal) (asr.Transcript, error) {
	if signal.SampleRate <= 0 {
		return asr.Transcript{}, fmt.Errorf("whisper: sample rate must be positive, got %d", signal.SampleRate)
	}

	body, contentType, err := r.buildForm(signal.Resample(whisperSampleRate))
	if err != nil {
		return asr.Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/inference", body)
	if err != nil {
		return asr.Transcript{}, fmt.Errorf("whisper: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return asr.Transcript{}, fmt.Errorf("whisper: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return asr.Transcript{}, fmt.Errorf("whisper: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var ir inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return asr.Transcript{}, fmt.Errorf("whisper: decode response: %w", err)
	}

	transcript := asr.Transcript{
		Text:     strings.TrimSpace(ir.Text),
		Language: ir.Language,
	}
	for _, w := range ir.Words {
		transcript.Words = append(transcript.Words, asr.Word{
			Word:       strings.TrimSpace(w.Word),
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Probability,
		})
	}
	return transcript, nil
}

// buildForm assembles the multipart upload: the WAV file plus the fields the
// whisper server expects.
func (r *Recognizer) buildForm(signal audio.Signal) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	file, err := form.CreateFormFile("file", "recitation.wav")
	if err != nil {
		return nil, "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if err := audio.EncodeWAV(file, signal); err != nil {
		return nil, "", fmt.Errorf("whisper: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
	}
	if r.language != "" {
		fields["language"] = r.language
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("whisper: write field %s: %w", k, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper: close form: %w", err)
	}
	return body, form.FormDataContentType(), nil
}

// ModelID implements [asr.Recognizer].
func (r *Recognizer) ModelID() string { return "whisper-server" }
