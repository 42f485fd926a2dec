package transcribe

import (
	"fmt"
	"os"

	"github.com/chaz8081/gostt-batch/internal/audio"
)

// writeTempWAV encodes samples into a new temporary WAV file and returns
// its path. The caller removes the file.
func writeTempWAV(samples []float32, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "gostt-batch-*.wav")
	if err != nil {
		return "", fmt.Errorf("transcribe: create temp wav: %w", err)
	}
	path := f.Name()

	if err := audio.WriteWAV(f, audio.Signal{Samples: samples, SampleRate: sampleRate}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("transcribe: close temp wav: %w", err)
	}
	return path, nil
}
