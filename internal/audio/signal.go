// Package audio loads audio files into mono float32 signals at a fixed
// sample rate, ready for speech-to-text.
package audio

import (
	"fmt"

	goaudio "github.com/go-audio/audio"
)

// Signal is a mono waveform with amplitudes in [-1.0, 1.0].
type Signal struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Mix selects how multi-channel audio is reduced to one channel.
type Mix int

const (
	// MixAverage averages all channels of a frame.
	MixAverage Mix = iota
	// MixFirst keeps only the first channel.
	MixFirst
)

// ParseMix maps a config value ("average" or "first") to a Mix.
func ParseMix(s string) (Mix, error) {
	switch s {
	case "average", "":
		return MixAverage, nil
	case "first":
		return MixFirst, nil
	default:
		return MixAverage, fmt.Errorf("audio: unknown mix %q", s)
	}
}

// toMono converts interleaved PCM ints to mono float32 scaled by the
// source bit depth. 8-bit WAV data is unsigned.
func toMono(buf *goaudio.IntBuffer, mix Mix) ([]float32, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("audio: missing PCM format")
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("audio: invalid channel count %d", channels)
	}

	var offset, scale float64
	switch buf.SourceBitDepth {
	case 8:
		offset, scale = 128, 128
	case 16:
		scale = 32768
	case 24:
		scale = 8388608
	case 32:
		scale = 2147483648
	default:
		return nil, fmt.Errorf("audio: unsupported bit depth %d", buf.SourceBitDepth)
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)

	if channels == 1 || mix == MixFirst {
		for i := range out {
			out[i] = float32((float64(buf.Data[i*channels]) - offset) / scale)
		}
		return out, nil
	}

	for i := range out {
		var sum float64
		frame := buf.Data[i*channels : (i+1)*channels]
		for _, v := range frame {
			sum += float64(v) - offset
		}
		out[i] = float32(sum / float64(channels) / scale)
	}
	return out, nil
}
