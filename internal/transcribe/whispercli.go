package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chaz8081/gostt-batch/internal/config"
	"github.com/chaz8081/gostt-batch/internal/models"
)

// WhisperCLI runs the whisper.cpp command-line binary once per clip.
type WhisperCLI struct {
	binary    string
	modelPath string
	language  string
	threads   int
}

// NewWhisperCLI resolves the whisper binary and checks the model file.
// A missing model is downloaded when cfg.AutoDownload is set.
func NewWhisperCLI(ctx context.Context, cfg config.WhisperConfig) (*WhisperCLI, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = "whisper-cli"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("transcribe: whisper binary %q: %w", binary, err)
	}

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("transcribe: whisper model path is empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) || !cfg.AutoDownload {
			return nil, fmt.Errorf("transcribe: whisper model %q: %w", cfg.ModelPath, err)
		}
		url := models.WhisperModelURL(filepath.Base(cfg.ModelPath))
		slog.Info("Downloading whisper model", "url", url, "dest", cfg.ModelPath)
		if err := models.Download(ctx, url, cfg.ModelPath, os.Stderr); err != nil {
			return nil, fmt.Errorf("transcribe: fetch whisper model: %w", err)
		}
	}

	return &WhisperCLI{
		binary:    resolved,
		modelPath: cfg.ModelPath,
		language:  cfg.Language,
		threads:   cfg.Threads,
	}, nil
}

func (w *WhisperCLI) args(wavPath string) []string {
	args := []string{"-m", w.modelPath, "-f", wavPath, "-nt", "-np"}
	if w.language != "" {
		args = append(args, "-l", w.language)
	}
	if w.threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.threads))
	}
	return args
}

// Process writes samples to a temporary WAV file and transcribes it.
func (w *WhisperCLI) Process(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	wavPath, err := writeTempWAV(samples, sampleRate)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(wavPath) }()

	cmd := exec.CommandContext(ctx, w.binary, w.args(wavPath)...)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return "", fmt.Errorf("transcribe: whisper failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("transcribe: run whisper: %w", err)
	}

	return joinLines(string(out)), nil
}

// Close is a no-op; each Process call owns its own process.
func (w *WhisperCLI) Close() error { return nil }

// joinLines trims each line of s and joins the non-empty ones with a space.
func joinLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
