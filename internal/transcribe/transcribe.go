// Package transcribe provides speech-to-text backends.
//
// Supported backends:
//   - whisper-cli: the whisper.cpp command-line binary (default)
//   - openai: an OpenAI-compatible /audio/transcriptions endpoint
//   - google: Google Cloud Speech-to-Text
package transcribe

import (
	"context"
	"fmt"

	"github.com/chaz8081/gostt-batch/internal/config"
)

// Transcriber converts audio samples to text.
type Transcriber interface {
	// Process transcribes mono float32 audio samples to text.
	Process(ctx context.Context, samples []float32, sampleRate int) (string, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Transcriber based on the config backend setting. It
// fails when the backend cannot be made ready.
func New(ctx context.Context, cfg *config.TranscribeConfig) (Transcriber, error) {
	switch cfg.Backend {
	case "whisper-cli", "":
		return NewWhisperCLI(ctx, cfg.Whisper)
	case "openai":
		return NewOpenAI(cfg.OpenAI)
	case "google":
		return NewGoogle(ctx, cfg.Google)
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper-cli, openai, google)", cfg.Backend)
	}
}
