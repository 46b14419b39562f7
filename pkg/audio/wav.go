package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeWAV writes the signal as a 16-bit mono PCM WAV file.
func EncodeWAV(w io.Writer, s Signal) error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("audio: encode wav: sample rate must be positive, got %d", s.SampleRate)
	}

	pcm := s.PCM16()
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := s.SampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(s.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	return nil
}

// DecodeWAV reads a 16-bit PCM WAV file into a normalized mono [Signal].
// Stereo files are downmixed. Other sample formats are rejected.
func DecodeWAV(r io.Reader) (Signal, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Signal{}, fmt.Errorf("audio: decode wav: read header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Signal{}, fmt.Errorf("audio: decode wav: not a RIFF/WAVE file")
	}

	var (
		sampleRate int
		channels   int
	)
	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF {
				return Signal{}, fmt.Errorf("audio: decode wav: no data chunk")
			}
			return Signal{}, fmt.Errorf("audio: decode wav: read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Signal{}, fmt.Errorf("audio: decode wav: fmt chunk too short")
			}
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtData); err != nil {
				return Signal{}, fmt.Errorf("audio: decode wav: read fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(fmtData[0:2])
			if format != 1 {
				return Signal{}, fmt.Errorf("audio: decode wav: unsupported format %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			if bits := binary.LittleEndian.Uint16(fmtData[14:16]); bits != 16 {
				return Signal{}, fmt.Errorf("audio: decode wav: unsupported bit depth %d, want 16", bits)
			}
		case "data":
			if sampleRate == 0 || channels == 0 {
				return Signal{}, fmt.Errorf("audio: decode wav: data chunk before fmt chunk")
			}
			pcm := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return Signal{}, fmt.Errorf("audio: decode wav: read data chunk: %w", err)
			}
			return SignalFromPCM16(pcm, sampleRate, channels)
		default:
			// Skip unknown chunks (LIST, fact, …). Chunks are word-aligned.
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return Signal{}, fmt.Errorf("audio: decode wav: skip %s chunk: %w", chunkID, err)
			}
		}
	}
}
