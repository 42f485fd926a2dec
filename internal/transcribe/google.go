package transcribe

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/chaz8081/gostt-batch/internal/config"
)

// Google transcribes clips with Cloud Speech-to-Text synchronous recognition.
type Google struct {
	c        *speech.Client
	language string
}

// NewGoogle dials the Speech-to-Text API. Credentials come from
// cfg.CredentialsFile when set, otherwise from the application default
// credentials.
func NewGoogle(ctx context.Context, cfg config.GoogleConfig) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("transcribe: google: new client: %w", err)
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	return &Google{c: c, language: language}, nil
}

// Process sends samples as LINEAR16 at their native rate.
func (g *Google) Process(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	resp, err := g.c.Recognize(ctx, recognizeRequest(samples, sampleRate, g.language))
	if err != nil {
		return "", fmt.Errorf("transcribe: google: recognize: %w", err)
	}
	return joinResults(resp.GetResults()), nil
}

// Close releases the gRPC connection.
func (g *Google) Close() error { return g.c.Close() }

func recognizeRequest(samples []float32, sampleRate int, language string) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(sampleRate),
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm16LE(samples)},
		},
	}
}

// joinResults concatenates the top alternative of every result.
func joinResults(results []*speechpb.SpeechRecognitionResult) string {
	var parts []string
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// pcm16LE converts samples to little-endian signed 16-bit PCM.
func pcm16LE(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(math.Round(float64(v) * 32767))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
