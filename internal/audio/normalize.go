package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
)

// TargetSampleRate is the rate speech-to-text backends expect.
const TargetSampleRate = 16000

// ErrNoDecoder is returned when a file needs the external decoder but none
// was configured.
var ErrNoDecoder = errors.New("audio: no decoder for format")

// ErrEmptyAudio is returned for files that decode to zero samples.
var ErrEmptyAudio = errors.New("audio: no samples")

// Decoder reads a media file into interleaved PCM at its native rate.
type Decoder interface {
	Decode(ctx context.Context, path string) (*goaudio.IntBuffer, error)
}

// Normalizer loads audio files as mono signals at TargetRate.
//
// WAV files are decoded by Native; when that fails and External is set the
// file is retried through External. All other formats go to External.
type Normalizer struct {
	Native     Decoder
	External   Decoder
	TargetRate int
	Mix        Mix

	resamplers map[int]*Resampler
}

// NewNormalizer returns a Normalizer using the built-in WAV decoder and
// the given external decoder (may be nil).
func NewNormalizer(external Decoder, targetRate int, mix Mix) *Normalizer {
	if targetRate <= 0 {
		targetRate = TargetSampleRate
	}
	return &Normalizer{
		Native:     WAVDecoder{},
		External:   external,
		TargetRate: targetRate,
		Mix:        mix,
	}
}

// Load decodes path, collapses it to one channel and resamples it to the
// target rate. Signals already at the target rate are returned unchanged.
func (n *Normalizer) Load(ctx context.Context, path string) (Signal, error) {
	buf, err := n.decode(ctx, path)
	if err != nil {
		return Signal{}, fmt.Errorf("audio: load %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil {
		return Signal{}, fmt.Errorf("audio: load %s: decoder returned no format", path)
	}

	rate := buf.Format.SampleRate
	if rate <= 0 {
		return Signal{}, fmt.Errorf("audio: load %s: invalid sample rate %d", path, rate)
	}

	mono, err := toMono(buf, n.Mix)
	if err != nil {
		return Signal{}, fmt.Errorf("audio: load %s: %w", path, err)
	}
	if len(mono) == 0 {
		return Signal{}, fmt.Errorf("audio: load %s: %w", path, ErrEmptyAudio)
	}

	if rate == n.TargetRate {
		return Signal{Samples: mono, SampleRate: rate}, nil
	}

	return Signal{
		Samples:    n.resampler(rate).Resample(mono),
		SampleRate: n.TargetRate,
	}, nil
}

// resampler returns the shared resampler for a source rate.
func (n *Normalizer) resampler(from int) *Resampler {
	if n.resamplers == nil {
		n.resamplers = make(map[int]*Resampler)
	}
	r, ok := n.resamplers[from]
	if !ok {
		r = NewResampler(from, n.TargetRate)
		n.resamplers[from] = r
	}
	return r
}

func (n *Normalizer) decode(ctx context.Context, path string) (*goaudio.IntBuffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") && n.Native != nil {
		buf, err := n.Native.Decode(ctx, path)
		if err == nil {
			return buf, nil
		}
		if n.External == nil {
			return nil, err
		}
		// Non-PCM or unusual WAV layouts go through the external decoder.
	}

	if n.External == nil {
		return nil, fmt.Errorf("%w %q", ErrNoDecoder, filepath.Ext(path))
	}
	return n.External.Decode(ctx, path)
}
