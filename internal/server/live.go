package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tartil-app/tartil/internal/textcheck"
	"github.com/tartil-app/tartil/pkg/audio"
)

// liveEvent is one server-to-client message on the live feedback stream.
type liveEvent struct {
	// Type is "ready", "progress" or "error".
	Type string `json:"type"`

	// Verse is the expected text, sent once in the ready event.
	Verse     string `json:"verse,omitempty"`
	WordCount int    `json:"word_count,omitempty"`

	// Progress fields, sent after each audio chunk.
	Transcript string                 `json:"transcript,omitempty"`
	Score      float64                `json:"score,omitempty"`
	Words      []textcheck.WordResult `json:"words,omitempty"`

	Error string `json:"error,omitempty"`
}

// handleLive upgrades to a websocket and streams per-word feedback. The
// client names the verse in query parameters, then sends binary messages
// each holding the WAV of the recitation so far; every chunk is answered
// with a progress event comparing the transcript against the verse.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.recognizer == nil || s.verses == nil {
		writeError(w, http.StatusServiceUnavailable, "live feedback is not configured")
		return
	}

	surah, err1 := strconv.Atoi(r.URL.Query().Get("surah"))
	ayah, err2 := strconv.Atoi(r.URL.Query().Get("ayah"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "surah and ayah query parameters are required")
		return
	}

	verse, err := s.verses.Verse(r.Context(), surah, ayah)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session aborted")

	ctx := r.Context()
	s.metrics.ActiveLiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveLiveSessions.Add(ctx, -1)

	words := len(textcheck.Compare(verse.Text, "", s.minSimilarity).Words)
	ready := liveEvent{Type: "ready", Verse: verse.Text, WordCount: words}
	if err := wsjson.Write(ctx, conn, ready); err != nil {
		return
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				conn.Close(websocket.StatusNormalClosure, "done")
				return
			}
			s.log.Debug("live session read error", "err", err)
			return
		}
		if typ != websocket.MessageBinary {
			// Control messages are ignored; audio is always binary.
			continue
		}

		signal, err := audio.DecodeWAV(bytes.NewReader(data))
		if err != nil {
			wsjson.Write(ctx, conn, liveEvent{Type: "error", Error: err.Error()})
			continue
		}

		start := time.Now()
		transcript, err := s.recognizer.Recognize(ctx, signal)
		if err != nil {
			s.metrics.RecordProviderError(ctx, s.recognizer.ModelID(), "asr")
			wsjson.Write(ctx, conn, liveEvent{Type: "error", Error: "transcription failed"})
			continue
		}
		s.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())

		check := textcheck.Compare(verse.Text, transcript.Text, s.minSimilarity)
		event := liveEvent{
			Type:       "progress",
			Transcript: transcript.Text,
			Score:      check.Score,
			Words:      check.Words,
		}
		if err := wsjson.Write(ctx, conn, event); err != nil {
			return
		}
	}
}
