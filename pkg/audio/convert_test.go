package audio_test

import (
	"math"
	"testing"

	"github.com/tartil-app/tartil/pkg/audio"
)

func TestStereoToMono(t *testing.T) {
	t.Parallel()

	// Two stereo frames: (100, 200) and (-100, 100).
	pcm := pcm16(100, 200, -100, 100)
	mono := audio.StereoToMono(pcm)
	got := samples16(mono)
	want := []int16{150, 0}
	if len(got) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSignalFromPCM16(t *testing.T) {
	t.Parallel()

	sig, err := audio.SignalFromPCM16(pcm16(0, 16384, -16384), 22050, 1)
	if err != nil {
		t.Fatalf("SignalFromPCM16: %v", err)
	}
	want := []float64{0, 0.5, -0.5}
	if len(sig.Samples) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(sig.Samples), len(want))
	}
	for i := range want {
		if math.Abs(sig.Samples[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, sig.Samples[i], want[i])
		}
	}
	if sig.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", sig.SampleRate)
	}
}

func TestSignalFromPCM16_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := audio.SignalFromPCM16([]byte{1}, 22050, 1); err == nil {
		t.Error("odd byte count accepted")
	}
	if _, err := audio.SignalFromPCM16(pcm16(0), 22050, 5); err == nil {
		t.Error("5-channel input accepted")
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	t.Parallel()

	orig := audio.Signal{Samples: []float64{0, 0.25, -0.25, 0.999}, SampleRate: 22050}
	back, err := audio.SignalFromPCM16(orig.PCM16(), orig.SampleRate, 1)
	if err != nil {
		t.Fatalf("SignalFromPCM16: %v", err)
	}
	for i := range orig.Samples {
		if math.Abs(back.Samples[i]-orig.Samples[i]) > 1.0/32768 {
			t.Errorf("sample %d = %v, want %v within one quantization step", i, back.Samples[i], orig.Samples[i])
		}
	}
}

func TestPCM16_Clamps(t *testing.T) {
	t.Parallel()

	out := audio.Signal{Samples: []float64{2, -2}, SampleRate: 22050}.PCM16()
	got := samples16(out)
	if got[0] != 32767 || got[1] != -32768 {
		t.Errorf("samples = %v, want clamped [32767 -32768]", got)
	}
}

func TestSignalResample(t *testing.T) {
	t.Parallel()

	sig := audio.Signal{Samples: []float64{0, 0.1, 0.2, 0.3}, SampleRate: 44100}
	out := sig.Resample(22050)
	if out.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", out.SampleRate)
	}
	if len(out.Samples) != 2 {
		t.Fatalf("sample count = %d, want 2", len(out.Samples))
	}
	if math.Abs(out.Samples[0]-0) > 1e-9 || math.Abs(out.Samples[1]-0.2) > 1e-9 {
		t.Errorf("samples = %v, want [0 0.2]", out.Samples)
	}
}

// pcm16 builds a little-endian int16 PCM byte slice.
func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// samples16 decodes a little-endian int16 PCM byte slice.
func samples16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return out
}
