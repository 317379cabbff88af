// Package wavinfo reports WAV durations without decoding samples. Header
// parsing is done by go-audio/wav; the data size is clamped to what the file
// actually holds so streamed WAVs (written to a pipe, data size 0xFFFFFFFF or
// 0) still report their real length.
package wavinfo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned for input that go-audio cannot parse as RIFF/WAVE.
var ErrNotWAV = errors.New("not a WAV file")

// Header holds the fields of a WAV file needed to compute its duration.
type Header struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BitsPerSample uint16
	// DeclaredBytes is the size written in the data chunk header.
	DeclaredBytes int64
	// DataBytes is the number of PCM bytes present in the file.
	DataBytes int64
}

// Streamed reports whether the declared data size disagrees with the file.
func (h Header) Streamed() bool {
	return h.DeclaredBytes != h.DataBytes
}

// Seconds returns the audio length in seconds.
func (h Header) Seconds() float64 {
	if h.ByteRate == 0 {
		return 0
	}
	return float64(h.DataBytes) / float64(h.ByteRate)
}

// Duration returns the audio length as a time.Duration.
func (h Header) Duration() time.Duration {
	return time.Duration(h.Seconds() * float64(time.Second))
}

// Read parses the fmt chunk and positions r at the start of the PCM data.
func Read(r io.ReadSeeker) (Header, error) {
	dec := wav.NewDecoder(r)
	if err := dec.FwdToPCM(); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	h := Header{
		AudioFormat:   dec.WavAudioFormat,
		NumChannels:   dec.NumChans,
		SampleRate:    dec.SampleRate,
		ByteRate:      dec.AvgBytesPerSec,
		BitsPerSample: dec.BitDepth,
		DeclaredBytes: int64(dec.PCMSize),
	}
	if h.NumChannels == 0 || h.SampleRate == 0 {
		return Header{}, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	if h.ByteRate == 0 {
		h.ByteRate = h.SampleRate * uint32(h.NumChannels) * uint32(h.BitsPerSample) / 8
	}

	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Header{}, fmt.Errorf("locate data chunk: %w", err)
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Header{}, fmt.Errorf("locate end of file: %w", err)
	}
	h.DataBytes = h.DeclaredBytes
	if remaining := end - start; h.DataBytes <= 0 || h.DataBytes > remaining {
		h.DataBytes = max(remaining, 0)
	}
	return h, nil
}

// ReadFile is a convenience wrapper that opens a file path.
func ReadFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	header, err := Read(f)
	if err != nil {
		return header, fmt.Errorf("%s: %w", path, err)
	}
	return header, nil
}

// Duration returns the length of the WAV file at path in seconds.
func Duration(path string) (float64, error) {
	header, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	return header.Seconds(), nil
}
