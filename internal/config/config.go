package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	InputDir   string           `yaml:"input_dir"`
	OutputPath string           `yaml:"output_path"`
	Extensions []string         `yaml:"extensions"`
	Audio      AudioConfig      `yaml:"audio"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	LogLevel   string           `yaml:"log_level"`
}

// AudioConfig holds normalization settings.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"` // must be 16000
	Mix        string `yaml:"mix"` // "average" or "first"
}

// DecoderConfig lists where to look for the ffmpeg executable.
type DecoderConfig struct {
	// Env names an environment variable whose value, when set, is tried
	// before Candidates.
	Env        string   `yaml:"env"`
	Candidates []string `yaml:"candidates"`
}

// TranscribeConfig selects and configures the speech-to-text backend.
type TranscribeConfig struct {
	Backend string        `yaml:"backend"` // "whisper-cli", "openai" or "google"
	Whisper WhisperConfig `yaml:"whisper"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Google  GoogleConfig  `yaml:"google"`
}

// WhisperConfig configures the whisper.cpp CLI backend.
type WhisperConfig struct {
	Binary       string `yaml:"binary"`
	ModelPath    string `yaml:"model_path"`
	Language     string `yaml:"language"`
	Threads      int    `yaml:"threads"`
	AutoDownload bool   `yaml:"auto_download"`
}

// OpenAIConfig configures the OpenAI-compatible transcription backend.
// The API key is read from OPENAI_API_KEY when APIKey is empty.
type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
}

// GoogleConfig configures the Google Cloud Speech-to-Text backend.
type GoogleConfig struct {
	Language        string `yaml:"language"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gostt-batch")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory downloaded models are stored in.
func DefaultModelsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "gostt-batch", "models")
}

// DefaultExtensions are the file suffixes accepted by the folder scan.
var DefaultExtensions = []string{".wav", ".mp3", ".flac"}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		InputDir:   "clips",
		OutputPath: "transcriptions.csv",
		Extensions: append([]string(nil), DefaultExtensions...),
		Audio: AudioConfig{
			SampleRate: 16000,
			Mix:        "average",
		},
		Decoder: DecoderConfig{
			Env: "FFMPEG_PATH",
			Candidates: []string{
				`C:\ffmpeg\bin\ffmpeg.exe`,
				`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
				"/usr/bin/ffmpeg",
				"/usr/local/bin/ffmpeg",
				"/opt/homebrew/bin/ffmpeg",
			},
		},
		Transcribe: TranscribeConfig{
			Backend: "whisper-cli",
			Whisper: WhisperConfig{
				Binary:    "whisper-cli",
				ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.en.bin"),
				Language:  "en",
			},
			OpenAI: OpenAIConfig{
				Model: "whisper-1",
			},
			Google: GoogleConfig{
				Language: "en-US",
			},
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in path fields is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ExpandPaths()

	return cfg, nil
}

// ExpandPaths expands a leading ~ in every path-valued field.
func (c *Config) ExpandPaths() {
	c.InputDir = expandTilde(c.InputDir)
	c.OutputPath = expandTilde(c.OutputPath)
	c.Transcribe.Whisper.ModelPath = expandTilde(c.Transcribe.Whisper.ModelPath)
	c.Transcribe.Google.CredentialsFile = expandTilde(c.Transcribe.Google.CredentialsFile)
	for i, p := range c.Decoder.Candidates {
		c.Decoder.Candidates[i] = expandTilde(p)
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir must not be empty")
	}

	if c.OutputPath == "" {
		return fmt.Errorf("output_path must not be empty")
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extensions: %q must start with a dot", ext)
		}
	}

	if c.Audio.SampleRate != 16000 {
		return fmt.Errorf("audio.sample_rate must be 16000, got %d", c.Audio.SampleRate)
	}

	switch c.Audio.Mix {
	case "average", "first":
	default:
		return fmt.Errorf("audio.mix must be \"average\" or \"first\", got %q", c.Audio.Mix)
	}

	if c.Decoder.Env == "" && len(c.Decoder.Candidates) == 0 {
		return fmt.Errorf("decoder: at least one of env or candidates must be set")
	}

	switch c.Transcribe.Backend {
	case "whisper-cli", "":
		if c.Transcribe.Whisper.ModelPath == "" {
			return fmt.Errorf("transcribe.whisper.model_path must not be empty")
		}
		if c.Transcribe.Whisper.Threads < 0 {
			return fmt.Errorf("transcribe.whisper.threads must be >= 0")
		}
	case "openai":
		if c.Transcribe.OpenAI.Model == "" {
			return fmt.Errorf("transcribe.openai.model must not be empty")
		}
	case "google":
		if c.Transcribe.Google.Language == "" {
			return fmt.Errorf("transcribe.google.language must not be empty")
		}
	default:
		return fmt.Errorf("transcribe.backend must be whisper-cli, openai, or google, got %q", c.Transcribe.Backend)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level to a slog.Level. Unknown values map to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultConfigHeader = `# gostt-batch configuration
#
# input_dir is scanned for .wav/.mp3/.flac files and output_path receives
# one CSV row per transcribed file. Command-line flags override these values.
#
# ffmpeg lookup: the path in the decoder.env variable (FFMPEG_PATH by
# default) is tried first, then each decoder.candidates entry in order.
# The first existing file wins, so a set env var beats the candidate list.
# audio.sample_rate must stay 16000.
`

// WriteDefault writes the default config to DefaultConfigPath. It returns
// the written path, or "" if a config file already exists there.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	content := append([]byte(defaultConfigHeader+"\n"), data...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
