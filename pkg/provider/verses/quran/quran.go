// Package quran provides a verse source backed by the Quran.com v4 API
// (https://api.quran.com/api/v4).
//
// Verse text is immutable, so every successful lookup is cached for the
// lifetime of the client; a warm cache makes repeated evaluations of the
// same ayah free of network traffic.
//
// Example usage:
//
//	src, err := quran.New("", quran.DefaultReciterID)
//	verse, err := src.Verse(ctx, 1, 1)
package quran

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tartil-app/tartil/pkg/provider/verses"
)

// DefaultBaseURL is the Quran.com v4 API root.
const DefaultBaseURL = "https://api.quran.com/api/v4"

// DefaultAudioBaseURL is the CDN the API's relative audio paths resolve
// against.
const DefaultAudioBaseURL = "https://verses.quran.com"

// DefaultReciterID is Quran.com's recitation id for AbdulBaset AbdulSamad
// (Murattal), a common reference recitation.
const DefaultReciterID = 2

// Ensure Client implements the verses.Source interface at compile time.
var _ verses.Source = (*Client)(nil)

// Client implements [verses.Source] against the Quran.com API.
// Client is safe for concurrent use.
type Client struct {
	baseURL      string
	audioBaseURL string
	reciterID    int
	httpClient   *http.Client

	mu         sync.RWMutex
	cache      map[string]verses.Verse
	countCache map[int]int
}

// config holds optional configuration collected from functional options.
type config struct {
	timeout      time.Duration
	audioBaseURL string
}

// Option is a functional option for Client.
type Option func(*config)

// WithTimeout sets a per-request HTTP timeout on the underlying HTTP client.
// A zero or negative value means no timeout (the default).
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithAudioBaseURL overrides the CDN root that relative audio paths resolve
// against. Mainly useful in tests.
func WithAudioBaseURL(u string) Option {
	return func(c *config) {
		c.audioBaseURL = u
	}
}

// New constructs a new Quran.com client. baseURL is the API root; if empty,
// [DefaultBaseURL] is used. reciterID selects the reference recitation; pass
// [DefaultReciterID] unless the caller has a preference.
func New(baseURL string, reciterID int, opts ...Option) (*Client, error) {
	if reciterID <= 0 {
		return nil, fmt.Errorf("quran: reciter id must be positive, got %d", reciterID)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cfg := &config{audioBaseURL: DefaultAudioBaseURL}
	for _, o := range opts {
		o(cfg)
	}

	httpClient := &http.Client{}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	return &Client{
		baseURL:      baseURL,
		audioBaseURL: strings.TrimRight(cfg.audioBaseURL, "/"),
		reciterID:    reciterID,
		httpClient:   httpClient,
		cache:        make(map[string]verses.Verse),
		countCache:   make(map[int]int),
	}, nil
}

// verseResponse is the JSON body of /verses/by_key/{key}.
type verseResponse struct {
	Verse struct {
		VerseKey    string `json:"verse_key"`
		TextUthmani string `json:"text_uthmani"`
	} `json:"verse"`
}

// chapterResponse is the JSON body of /chapters/{id}.
type chapterResponse struct {
	Chapter struct {
		VersesCount int `json:"verses_count"`
	} `json:"chapter"`
}

// audioResponse is the JSON body of /recitations/{id}/by_ayah/{key}.
type audioResponse struct {
	AudioFiles []struct {
		URL string `json:"url"`
	} `json:"audio_files"`
}

// Verse implements [verses.Source].
func (c *Client) Verse(ctx context.Context, surah, ayah int) (verses.Verse, error) {
	key, err := verseKey(surah, ayah)
	if err != nil {
		return verses.Verse{}, err
	}

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var vr verseResponse
	url := fmt.Sprintf("%s/verses/by_key/%s?fields=text_uthmani", c.baseURL, key)
	if err := c.getJSON(ctx, url, &vr); err != nil {
		return verses.Verse{}, fmt.Errorf("quran: verse %s: %w", key, err)
	}
	if vr.Verse.TextUthmani == "" {
		return verses.Verse{}, fmt.Errorf("quran: verse %s: empty text in response", key)
	}

	verse := verses.Verse{Surah: surah, Ayah: ayah, Text: vr.Verse.TextUthmani}
	c.mu.Lock()
	c.cache[key] = verse
	c.mu.Unlock()
	return verse, nil
}

// AyahCount implements [verses.Source]. Chapter metadata is immutable, so
// counts are cached like verse text.
func (c *Client) AyahCount(ctx context.Context, surah int) (int, error) {
	if surah < 1 || surah > 114 {
		return 0, fmt.Errorf("quran: invalid surah %d", surah)
	}

	c.mu.RLock()
	cached, ok := c.countCache[surah]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var cr chapterResponse
	url := fmt.Sprintf("%s/chapters/%d", c.baseURL, surah)
	if err := c.getJSON(ctx, url, &cr); err != nil {
		return 0, fmt.Errorf("quran: chapter %d: %w", surah, err)
	}
	if cr.Chapter.VersesCount <= 0 {
		return 0, fmt.Errorf("quran: chapter %d: missing verses_count in response", surah)
	}

	c.mu.Lock()
	c.countCache[surah] = cr.Chapter.VersesCount
	c.mu.Unlock()
	return cr.Chapter.VersesCount, nil
}

// RecitationURL implements [verses.Source]. The API returns CDN-relative
// paths; they are resolved against the configured audio base URL.
func (c *Client) RecitationURL(ctx context.Context, surah, ayah int) (string, error) {
	key, err := verseKey(surah, ayah)
	if err != nil {
		return "", err
	}

	var ar audioResponse
	url := fmt.Sprintf("%s/recitations/%d/by_ayah/%s", c.baseURL, c.reciterID, key)
	if err := c.getJSON(ctx, url, &ar); err != nil {
		return "", fmt.Errorf("quran: recitation %s: %w", key, err)
	}
	if len(ar.AudioFiles) == 0 || ar.AudioFiles[0].URL == "" {
		return "", fmt.Errorf("quran: recitation %s: no audio files in response", key)
	}

	u := ar.AudioFiles[0].URL
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u, nil
	}
	return c.audioBaseURL + "/" + strings.TrimLeft(u, "/"), nil
}

// getJSON performs a GET request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// verseKey validates surah/ayah bounds and renders the API key form.
func verseKey(surah, ayah int) (string, error) {
	if surah < 1 || surah > 114 || ayah < 1 {
		return "", fmt.Errorf("quran: invalid verse %d:%d", surah, ayah)
	}
	return fmt.Sprintf("%d:%d", surah, ayah), nil
}
