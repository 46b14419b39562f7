package pitch_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tartil-app/tartil/internal/analysis/pitch"
	"github.com/tartil-app/tartil/pkg/audio"
)

func contour(freqs ...float64) audio.Contour {
	return audio.Contour{Frequencies: freqs, HopLength: 512, SampleRate: 44100}
}

func TestScore_IdenticalContours(t *testing.T) {
	t.Parallel()

	c := contour(440, 450, 460, 470)
	devs, err := pitch.Score(c, c, pitch.DefaultThresholdHz)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(devs) != 0 {
		t.Errorf("identical contours produced %d deviations, want 0", len(devs))
	}
}

func TestScore_ReferenceScenario(t *testing.T) {
	t.Parallel()

	// Reference holds a steady 440 Hz; the user wobbles around it.
	ref := contour(440, 440, 440, 440, 440)
	user := contour(440, 450, 430, 460, 440)

	devs, err := pitch.Score(user, ref, 10)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(devs) != 3 {
		t.Fatalf("deviation count = %d, want 3", len(devs))
	}

	wantFrames := []int{1, 2, 3}
	wantDirs := []pitch.Direction{pitch.DirectionHigher, pitch.DirectionLower, pitch.DirectionHigher}
	for i, d := range devs {
		if d.FrameIndex != wantFrames[i] {
			t.Errorf("devs[%d].FrameIndex = %d, want %d", i, d.FrameIndex, wantFrames[i])
		}
		if d.Direction != wantDirs[i] {
			t.Errorf("devs[%d].Direction = %q, want %q", i, d.Direction, wantDirs[i])
		}
	}

	// Frame 1 at hop 512 / 44.1 kHz ≈ 11.6 ms.
	frameSeconds := float64(512) / 44100
	wantTime := time.Duration(frameSeconds * float64(time.Second))
	if got := devs[0].Timestamp; got != wantTime {
		t.Errorf("devs[0].Timestamp = %v, want %v", got, wantTime)
	}

	stats, err := pitch.Stats(user, ref, 10)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.HighCount != 2 {
		t.Errorf("HighCount = %d, want 2", stats.HighCount)
	}
	if stats.LowCount != 1 {
		t.Errorf("LowCount = %d, want 1", stats.LowCount)
	}
}

func TestScore_SkipsUnvoicedFrames(t *testing.T) {
	t.Parallel()

	user := contour(0, 550, -1, 550)
	ref := contour(440, 440, 440, 0)

	devs, err := pitch.Score(user, ref, 50)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(devs) != 1 {
		t.Fatalf("deviation count = %d, want 1 (only frame 1 is voiced on both sides)", len(devs))
	}
	if devs[0].FrameIndex != 1 {
		t.Errorf("FrameIndex = %d, want 1", devs[0].FrameIndex)
	}
}

func TestScore_SemitoneAndCents(t *testing.T) {
	t.Parallel()

	user := contour(880)
	ref := contour(440)

	devs, err := pitch.Score(user, ref, 50)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(devs) != 1 {
		t.Fatalf("deviation count = %d, want 1", len(devs))
	}
	d := devs[0]
	if math.Abs(d.SemitoneDiff-12) > 1e-9 {
		t.Errorf("SemitoneDiff = %v, want 12", d.SemitoneDiff)
	}
	if math.Abs(d.CentsDiff-1200) > 1e-6 {
		t.Errorf("CentsDiff = %v, want 1200", d.CentsDiff)
	}
	if d.UserNote != "A5" || d.RefNote != "A4" {
		t.Errorf("notes = %q → %q, want A4 → A5", d.RefNote, d.UserNote)
	}
}

func TestScore_ContourMismatch(t *testing.T) {
	t.Parallel()

	a := audio.Contour{Frequencies: []float64{440}, HopLength: 512, SampleRate: 44100}
	b := audio.Contour{Frequencies: []float64{440}, HopLength: 256, SampleRate: 44100}
	if _, err := pitch.Score(a, b, 50); !errors.Is(err, pitch.ErrContourMismatch) {
		t.Errorf("hop mismatch: err = %v, want ErrContourMismatch", err)
	}

	c := audio.Contour{Frequencies: []float64{440}, HopLength: 512, SampleRate: 22050}
	if _, err := pitch.Stats(a, c, 50); !errors.Is(err, pitch.ErrContourMismatch) {
		t.Errorf("sample-rate mismatch: err = %v, want ErrContourMismatch", err)
	}
}

func TestScore_LengthMismatchTruncates(t *testing.T) {
	t.Parallel()

	user := contour(550, 550, 550, 550)
	ref := contour(440, 440)

	devs, err := pitch.Score(user, ref, 50)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(devs) != 2 {
		t.Errorf("deviation count = %d, want 2 (comparison truncated to shorter contour)", len(devs))
	}
}
