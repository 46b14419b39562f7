package whisper_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tartil-app/tartil/pkg/audio"
	"github.com/tartil-app/tartil/pkg/provider/asr/whisper"
)

// mockInferenceServer starts a test HTTP server that handles /inference
// multipart uploads and returns the canned response body.
func mockInferenceServer(t *testing.T, response map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("unexpected path: got %q, want /inference", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q, want verbose_json", got)
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		sig, err := audio.DecodeWAV(file)
		if err != nil {
			t.Errorf("uploaded file is not valid WAV: %v", err)
		} else if sig.SampleRate != 16000 {
			t.Errorf("uploaded sample rate = %d, want 16000", sig.SampleRate)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func TestRecognize(t *testing.T) {
	srv := mockInferenceServer(t, map[string]any{
		"text":     " بسم الله ",
		"language": "ar",
		"words": []map[string]any{
			{"word": "بسم", "start": 0.0, "end": 0.4, "probability": 0.97},
			{"word": "الله", "start": 0.4, "end": 0.9, "probability": 0.99},
		},
	})
	defer srv.Close()

	rec, err := whisper.New(srv.URL, "ar")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	signal := audio.Signal{Samples: make([]float64, 22050), SampleRate: 22050}
	transcript, err := rec.Recognize(context.Background(), signal)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if transcript.Text != "بسم الله" {
		t.Errorf("Text = %q, want trimmed transcript", transcript.Text)
	}
	if transcript.Language != "ar" {
		t.Errorf("Language = %q, want ar", transcript.Language)
	}
	if len(transcript.Words) != 2 {
		t.Fatalf("word count = %d, want 2", len(transcript.Words))
	}
	if transcript.Words[1].Start != 400*time.Millisecond {
		t.Errorf("word 1 start = %v, want 400ms", transcript.Words[1].Start)
	}
	if transcript.Words[1].Confidence != 0.99 {
		t.Errorf("word 1 confidence = %v, want 0.99", transcript.Words[1].Confidence)
	}
}

func TestRecognize_NoWordTiming(t *testing.T) {
	srv := mockInferenceServer(t, map[string]any{"text": "بسم"})
	defer srv.Close()

	rec, err := whisper.New(srv.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	transcript, err := rec.Recognize(context.Background(), audio.Signal{Samples: []float64{0.1}, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if transcript.Words != nil {
		t.Errorf("Words = %+v, want nil when server reports none", transcript.Words)
	}
}

func TestRecognize_InvalidSampleRate(t *testing.T) {
	rec, err := whisper.New("", "ar")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := rec.Recognize(context.Background(), audio.Signal{Samples: []float64{0.1}}); err == nil {
		t.Fatal("Recognize accepted a signal without a sample rate")
	}
}

func TestRecognize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec, err := whisper.New(srv.URL, "ar")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	signal := audio.Signal{Samples: []float64{0.1}, SampleRate: 16000}
	if _, err := rec.Recognize(context.Background(), signal); err == nil {
		t.Fatal("Recognize did not surface the server error")
	}
}
