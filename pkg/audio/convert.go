package audio

import "fmt"

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono output.
// Uses int32 arithmetic to prevent overflow and clamps to int16 range.
func StereoToMono(pcm []byte) []byte {
	// Each stereo frame is 4 bytes (2 bytes L + 2 bytes R).
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		lSample := int32(int16(pcm[i*4]) | int16(pcm[i*4+1])<<8)
		rSample := int32(int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8)
		avg := (lSample + rSample) / 2

		// Clamp to int16 range.
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}

		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// SignalFromPCM16 decodes little-endian int16 PCM into a normalized [Signal].
// Stereo input is downmixed to mono first. channels must be 1 or 2.
func SignalFromPCM16(pcm []byte, sampleRate, channels int) (Signal, error) {
	switch channels {
	case 1:
	case 2:
		pcm = StereoToMono(pcm)
	default:
		return Signal{}, fmt.Errorf("audio: unsupported channel count %d", channels)
	}
	if len(pcm)%2 != 0 {
		return Signal{}, fmt.Errorf("audio: odd byte count %d in int16 PCM", len(pcm))
	}

	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		samples[i] = float64(s) / 32768
	}
	return Signal{Samples: samples, SampleRate: sampleRate}, nil
}

// PCM16 encodes the signal as little-endian int16 mono PCM, clamping samples
// outside [-1, 1].
func (s Signal) PCM16() []byte {
	out := make([]byte, len(s.Samples)*2)
	for i, sample := range s.Samples {
		v := sample * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		n := int16(v)
		out[i*2] = byte(n)
		out[i*2+1] = byte(n >> 8)
	}
	return out
}

// Resample converts the signal to dstRate using linear interpolation.
// Returns the signal unchanged when the rates already match.
func (s Signal) Resample(dstRate int) Signal {
	if s.SampleRate <= 0 || dstRate <= 0 || s.SampleRate == dstRate || len(s.Samples) < 2 {
		out := s
		if dstRate > 0 {
			out.SampleRate = dstRate
		}
		return out
	}

	dstSamples := int(int64(len(s.Samples)) * int64(dstRate) / int64(s.SampleRate))
	if dstSamples == 0 {
		return Signal{SampleRate: dstRate}
	}

	out := make([]float64, dstSamples)
	ratio := float64(s.SampleRate) / float64(dstRate)
	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := s.Samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(s.Samples) {
			s1 = s.Samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return Signal{Samples: out, SampleRate: dstRate}
}
