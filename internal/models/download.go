// Package models fetches whisper.cpp ggml model files.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const whisperModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// WhisperModelURL returns the HuggingFace download URL for a ggml model
// file name such as "ggml-base.en.bin".
func WhisperModelURL(name string) string {
	return whisperModelBaseURL + name
}

// Download fetches url into dest. The body is written to dest+".tmp" and
// renamed into place once complete. If dest already exists and is not
// empty, Download does nothing. Progress is reported to progress when it
// is non-nil.
func Download(ctx context.Context, url, dest string, progress io.Writer) error {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("models: create dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("models: build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("models: download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download %s: HTTP %d", url, resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := dest + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("models: create temp file: %w", err)
	}

	var w io.Writer = f
	if progress != nil {
		w = &progressWriter{
			writer: f,
			out:    progress,
			total:  resp.ContentLength,
			label:  filepath.Base(dest),
		}
	}

	written, err := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: write %s: %w", tmpPath, err)
	}
	if progress != nil {
		_, _ = fmt.Fprintf(progress, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: move into place: %w", err)
	}
	return nil
}

// progressWriter wraps an io.Writer and prints download progress to out.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		_, _ = fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		_, _ = fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
