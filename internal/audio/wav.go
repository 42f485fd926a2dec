package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// ErrUnsupportedWAV is returned for WAV files that are not plain integer
// PCM. WAVE_FORMAT_EXTENSIBLE files are rejected too, since go-audio/wav
// reads their samples as integers whatever the subformat says.
var ErrUnsupportedWAV = errors.New("audio: unsupported WAV encoding")

// WAVDecoder decodes integer PCM WAV files with go-audio/wav.
type WAVDecoder struct{}

// Decode reads the whole file at path into an interleaved PCM buffer.
func (WAVDecoder) Decode(_ context.Context, path string) (*goaudio.IntBuffer, error) {
	return DecodeWAVFile(path)
}

// DecodeWAVFile opens path and decodes it with DecodeWAV.
func DecodeWAVFile(path string) (*goaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeWAV(f)
}

// DecodeWAV decodes an integer PCM WAV stream, keeping its native sample
// rate and channel layout.
func DecodeWAV(r io.ReadSeeker) (*goaudio.IntBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("audio: invalid wav: %w", err)
		}
		return nil, fmt.Errorf("audio: invalid wav")
	}

	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w (format tag %#x)", ErrUnsupportedWAV, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	return buf, nil
}

// WriteWAV encodes s as 16-bit PCM mono. Samples outside [-1, 1] are clipped.
func WriteWAV(w io.WriteSeeker, s Signal) error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("audio: write wav: invalid sample rate %d", s.SampleRate)
	}
	if len(s.Samples) == 0 {
		return fmt.Errorf("audio: write wav: empty signal")
	}

	data := make([]int, len(s.Samples))
	for i, v := range s.Samples {
		data[i] = int(math.Round(float64(clip(v)) * 32767))
	}

	enc := wav.NewEncoder(w, s.SampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: s.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile creates (or truncates) path and writes s into it.
func WriteWAVFile(path string, s Signal) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create wav: %w", err)
	}
	if err := WriteWAV(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
