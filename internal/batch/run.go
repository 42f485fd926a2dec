// Package batch drives a folder of audio clips through decoding,
// transcription and CSV output.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/gostt-batch/internal/audio"
	"github.com/chaz8081/gostt-batch/internal/decoder"
	"github.com/chaz8081/gostt-batch/internal/output"
	"github.com/chaz8081/gostt-batch/internal/scan"
	"github.com/chaz8081/gostt-batch/internal/transcribe"
)

var (
	// ErrInitialize wraps a transcriber that could not be made ready.
	ErrInitialize = errors.New("batch: transcriber initialization failed")
	// ErrOutput wraps a failure to create or write the output file.
	ErrOutput = errors.New("batch: output file")
)

// Loader turns an audio file into a mono signal at the target rate.
type Loader interface {
	Load(ctx context.Context, path string) (audio.Signal, error)
}

// Result is the outcome of one file. Err is nil on success.
type Result struct {
	File scan.AudioFile
	Text string
	Err  error
}

// Run records one execution of a Pipeline.
type Run struct {
	ID         uuid.UUID
	InputDir   string
	OutputPath string
	Decoder    string

	Files     int
	Attempted int
	Succeeded int
	Failed    int
	// Failures holds the failed files in scan order. Successful
	// transcriptions are written out and not retained.
	Failures []Result

	Started  time.Time
	Finished time.Time
}

// Progress returns the number of files processed and the total found.
func (r *Run) Progress() (done, total int) {
	return r.Attempted, r.Files
}

// Elapsed returns the wall time of the run so far.
func (r *Run) Elapsed() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// Pipeline holds everything a run needs. Initialize and NewLoader are
// called once per Run.
type Pipeline struct {
	InputDir   string
	OutputPath string
	Extensions []string

	// DecoderCandidates are tried in order for the external decoder.
	DecoderCandidates []string

	Initialize func(ctx context.Context) (transcribe.Transcriber, error)
	NewLoader  func(decoderPath string) Loader

	Progress Progress
	Logger   *slog.Logger
}

// Run processes every matching file of InputDir in scan order and writes
// one CSV row per successful transcription to OutputPath.
//
// A non-nil error means the run stopped early: a fatal precondition
// (decoder.ErrNotFound, ErrInitialize, scan.ErrDirNotFound, ErrOutput) or
// a canceled ctx. Per-file failures are recorded in the returned Run and
// never stop the loop.
func (p *Pipeline) Run(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:         uuid.New(),
		InputDir:   p.InputDir,
		OutputPath: p.OutputPath,
		Started:    time.Now(),
	}
	defer func() { run.Finished = time.Now() }()

	log := p.logger().With("run", run.ID.String())
	progress := p.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	decoderPath, err := decoder.Locate(p.DecoderCandidates)
	if err != nil {
		log.Error("Audio decoder not found", "error", err)
		return run, err
	}
	run.Decoder = decoderPath
	log.Info("Audio decoder located", "path", decoderPath)

	initStart := time.Now()
	tr, err := p.Initialize(ctx)
	if err != nil {
		log.Error("Transcriber initialization failed", "error", err)
		return run, fmt.Errorf("%w: %w", ErrInitialize, err)
	}
	defer func() {
		if err := tr.Close(); err != nil {
			log.Warn("Closing transcriber", "error", err)
		}
	}()
	log.Info("Transcriber ready", "elapsed", time.Since(initStart).Round(time.Millisecond))

	if err := scan.CheckDir(p.InputDir); err != nil {
		log.Error("Input directory not found", "dir", p.InputDir)
		return run, err
	}

	w, err := output.Open(p.OutputPath)
	if err != nil {
		log.Error("Cannot open output file", "path", p.OutputPath, "error", err)
		return run, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	defer func() { _ = w.Close() }()
	if err := w.WriteHeader(); err != nil {
		return run, fmt.Errorf("%w: %w", ErrOutput, err)
	}

	files, err := scan.Scan(p.InputDir, p.Extensions)
	if err != nil {
		return run, err
	}
	run.Files = len(files)
	if len(files) == 0 {
		log.Warn("No audio files found", "dir", p.InputDir, "extensions", strings.Join(p.Extensions, ","))
		return run, p.finish(log, run, w)
	}
	log.Info("Found audio files", "count", len(files), "dir", p.InputDir)

	loader := p.NewLoader(decoderPath)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			log.Warn("Run interrupted", "processed", run.Attempted, "total", run.Files)
			_ = p.finish(log, run, w)
			return run, fmt.Errorf("batch: interrupted: %w", err)
		}

		res := p.processFile(ctx, loader, tr, f)
		run.Attempted++

		if res.Err != nil {
			run.Failed++
			run.Failures = append(run.Failures, res)
			log.Warn("Failed to transcribe", "file", f.Name, "error", res.Err)
		} else {
			if err := w.WriteRow(f.Name, res.Text); err != nil {
				log.Error("Writing output row failed", "file", f.Name, "error", err)
				return run, fmt.Errorf("%w: %w", ErrOutput, err)
			}
			run.Succeeded++
			log.Info("Transcription", "file", f.Name, "text", res.Text)
		}

		progress.Update(run.Attempted, run.Files)
	}

	return run, p.finish(log, run, w)
}

func (p *Pipeline) processFile(ctx context.Context, loader Loader, tr transcribe.Transcriber, f scan.AudioFile) Result {
	sig, err := loader.Load(ctx, f.Path)
	if err != nil {
		return Result{File: f, Err: err}
	}
	text, err := tr.Process(ctx, sig.Samples, sig.SampleRate)
	if err != nil {
		return Result{File: f, Err: fmt.Errorf("batch: transcribe %s: %w", f.Name, err)}
	}
	return Result{File: f, Text: strings.ToLower(strings.TrimSpace(text))}
}

func (p *Pipeline) finish(log *slog.Logger, run *Run, w *output.Writer) error {
	if err := w.Close(); err != nil {
		log.Error("Closing output file failed", "path", p.OutputPath, "error", err)
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	run.Finished = time.Now()
	log.Info("Batch complete",
		"attempted", run.Attempted,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"output", p.OutputPath,
		"elapsed", run.Elapsed().Round(time.Millisecond),
	)
	return nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
