package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/chaz8081/gostt-batch/internal/config"
)

// OpenAI sends clips to an OpenAI-compatible transcription endpoint.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAI builds a client from cfg. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewOpenAI(cfg config.OpenAIConfig) (*OpenAI, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("transcribe: openai: no API key (set transcribe.openai.api_key or OPENAI_API_KEY)")
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAI{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
	}, nil
}

// Process uploads samples as a 16-bit WAV file.
func (o *OpenAI) Process(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	wavPath, err := writeTempWAV(samples, sampleRate)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(wavPath) }()

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: wavPath,
		Language: o.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: openai: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Close is a no-op.
func (o *OpenAI) Close() error { return nil }
