package decoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	goaudio "github.com/go-audio/audio"

	"github.com/chaz8081/gostt-batch/internal/audio"
)

// FFmpeg decodes any format ffmpeg understands into 16-bit PCM, keeping the
// source sample rate and channel count. It implements audio.Decoder.
type FFmpeg struct {
	// Path is the ffmpeg executable, normally the result of Locate.
	Path string
	// TempDir holds intermediate WAV files (default os.TempDir()).
	TempDir string
}

// Decode converts path to a temporary WAV with ffmpeg and decodes it.
// The temporary file is removed before returning.
func (f *FFmpeg) Decode(ctx context.Context, path string) (*goaudio.IntBuffer, error) {
	tmp, err := os.CreateTemp(f.TempDir, "gostt-batch-*.wav")
	if err != nil {
		return nil, fmt.Errorf("decoder: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	// ffmpeg -nostdin -y -i input -vn -acodec pcm_s16le -f wav output
	cmd := exec.CommandContext(ctx, f.Path,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y", "-i", path,
		"-vn", "-acodec", "pcm_s16le",
		"-f", "wav",
		tmpPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("decoder: ffmpeg %s: %w: %s", path, err, msg)
		}
		return nil, fmt.Errorf("decoder: ffmpeg %s: %w", path, err)
	}

	buf, err := audio.DecodeWAVFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("decoder: read ffmpeg output for %s: %w", path, err)
	}
	return buf, nil
}
