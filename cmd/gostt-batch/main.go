package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/chaz8081/gostt-batch/internal/audio"
	"github.com/chaz8081/gostt-batch/internal/batch"
	"github.com/chaz8081/gostt-batch/internal/config"
	"github.com/chaz8081/gostt-batch/internal/decoder"
	"github.com/chaz8081/gostt-batch/internal/transcribe"
)

// overrides holds command-line values that replace config fields when set.
type overrides struct {
	input   string
	output  string
	backend string
}

func main() {
	os.Exit(run())
}

func run() int {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/gostt-batch/config.yaml)")
	var ov overrides
	flag.StringVar(&ov.input, "input", "", "folder of .wav/.mp3/.flac files (overrides input_dir)")
	flag.StringVar(&ov.output, "output", "", "CSV file to write (overrides output_path)")
	flag.StringVar(&ov.backend, "backend", "", "transcription backend: whisper-cli, openai, google")
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	flag.Usage = usage
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
		return 2
	}

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "init-config: %v\n", err)
			return 2
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return 0
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return 0
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	applyOverrides(cfg, ov)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		return 2
	}

	// Logs go through the progress bar so they never land on its line.
	progress := batch.NewTerminalProgress(os.Stderr)
	logger := newLogger(progress, config.ParseLogLevel(cfg.LogLevel), isTerminal(os.Stderr))
	slog.SetDefault(logger)

	mix, err := audio.ParseMix(cfg.Audio.Mix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	printBanner(cfg)

	// Signal handling: an interrupt stops the run between files.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &batch.Pipeline{
		InputDir:          cfg.InputDir,
		OutputPath:        cfg.OutputPath,
		Extensions:        cfg.Extensions,
		DecoderCandidates: decoder.Candidates(cfg.Decoder.Env, cfg.Decoder.Candidates),
		Initialize: func(ctx context.Context) (transcribe.Transcriber, error) {
			slog.Info("Loading transcriber...", "backend", cfg.Transcribe.Backend)
			return transcribe.New(ctx, &cfg.Transcribe)
		},
		NewLoader: func(decoderPath string) batch.Loader {
			return audio.NewNormalizer(&decoder.FFmpeg{Path: decoderPath}, audio.TargetSampleRate, mix)
		},
		Progress: progress,
		Logger:   logger,
	}

	r, err := p.Run(ctx)
	progress.Done()
	if err != nil {
		logger.Error("Batch aborted", "error", err)
		return 1
	}

	fmt.Printf("Done: %d/%d transcribed in %s -> %s\n",
		r.Succeeded, r.Attempted, r.Elapsed().Round(time.Millisecond), cfg.OutputPath)
	return 0
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags]\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
	fmt.Fprint(out, decoderLookupHelp)
}

const decoderLookupHelp = `
Decoder lookup:
  ffmpeg is searched in this order: the path in $FFMPEG_PATH (or the
  variable named by decoder.env), then each decoder.candidates entry.
  The environment variable wins over every candidate path.
`

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	// No config file, use defaults
	return config.Default(), nil
}

func applyOverrides(cfg *config.Config, ov overrides) {
	if ov.input != "" {
		cfg.InputDir = ov.input
	}
	if ov.output != "" {
		cfg.OutputPath = ov.output
	}
	if ov.backend != "" {
		cfg.Transcribe.Backend = ov.backend
	}
	cfg.ExpandPaths()
}

// newLogger returns a tint handler on w, colored only when color is set.
func newLogger(w io.Writer, level slog.Level, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== gostt-batch ===")
	fmt.Printf("  Input:    %s (%s)\n", cfg.InputDir, strings.Join(cfg.Extensions, " "))
	fmt.Printf("  Output:   %s\n", cfg.OutputPath)
	fmt.Printf("  Backend:  %s\n", backendSummary(&cfg.Transcribe))
	fmt.Printf("  Audio:    %dHz mono (%s)\n", audio.TargetSampleRate, cfg.Audio.Mix)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("===================")
}

func backendSummary(tc *config.TranscribeConfig) string {
	switch tc.Backend {
	case "openai":
		return fmt.Sprintf("openai (%s)", tc.OpenAI.Model)
	case "google":
		return fmt.Sprintf("google (%s)", tc.Google.Language)
	default:
		return fmt.Sprintf("whisper-cli (%s)", tc.Whisper.ModelPath)
	}
}
