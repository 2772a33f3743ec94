package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime settings for the chat service.
type Config struct {
	BindAddr                 string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout          time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	SessionInactivityTimeout time.Duration `env:"APP_SESSION_INACTIVITY_TIMEOUT" envDefault:"30m"`
	MetricsNamespace         string        `env:"APP_METRICS_NAMESPACE" envDefault:"voicechat"`
	AllowAnyOrigin           bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`
	LogLevel                 string        `env:"APP_LOG_LEVEL" envDefault:"info"`

	// AIProvider selects the completion backend: auto|gemini|mock.
	AIProvider       string        `env:"AI_PROVIDER" envDefault:"auto"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL    string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiModels     []string      `env:"GEMINI_MODELS" envSeparator:"," envDefault:"gemini-1.5-flash,gemini-1.5-pro"`
	AIRequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"60s"`
	AIMaxRetries     int           `env:"AI_MAX_RETRIES" envDefault:"2"`
	AIRequestsPerSec float64       `env:"AI_REQUESTS_PER_SECOND" envDefault:"2"`
	UploadMaxBytes   int64         `env:"UPLOAD_MAX_BYTES" envDefault:"20971520"`
	ExportFilename   string        `env:"EXPORT_FILENAME" envDefault:"gemini_chat.txt"`
	ArchiveRedactPII bool          `env:"ARCHIVE_REDACT_PII" envDefault:"false"`
	DatabaseURL      string        `env:"DATABASE_URL"`

	// VoiceProvider selects the transcription backend: auto|whisper|google|mock.
	VoiceProvider        string        `env:"VOICE_PROVIDER" envDefault:"auto"`
	WhisperServerURL     string        `env:"WHISPER_SERVER_URL"`
	GoogleSpeechAPIKey   string        `env:"GOOGLE_SPEECH_API_KEY"`
	GoogleSpeechLanguage string        `env:"GOOGLE_SPEECH_LANGUAGE" envDefault:"en-US"`
	VoiceSampleRate      int           `env:"VOICE_SAMPLE_RATE" envDefault:"16000"`
	VoiceListenTimeout   time.Duration `env:"VOICE_LISTEN_TIMEOUT" envDefault:"5s"`
	VoicePhraseLimit     time.Duration `env:"VOICE_PHRASE_LIMIT" envDefault:"10s"`
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	return LoadFrom(env.ToMap(os.Environ()))
}

// LoadFrom is Load over an explicit key/value environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.GeminiBaseURL = strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/")
	cfg.WhisperServerURL = strings.TrimRight(strings.TrimSpace(cfg.WhisperServerURL), "/")
	cfg.GoogleSpeechAPIKey = strings.TrimSpace(cfg.GoogleSpeechAPIKey)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.GeminiModels = compact(cfg.GeminiModels)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c Config) Validate() error {
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if len(c.GeminiModels) == 0 {
		return fmt.Errorf("GEMINI_MODELS must list at least one model")
	}
	if c.AIMaxRetries < 0 {
		return fmt.Errorf("AI_MAX_RETRIES must be >= 0")
	}
	if c.AIRequestsPerSec <= 0 {
		return fmt.Errorf("AI_REQUESTS_PER_SECOND must be positive")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.VoiceSampleRate <= 0 {
		return fmt.Errorf("VOICE_SAMPLE_RATE must be positive")
	}
	if c.VoiceListenTimeout <= 0 || c.VoicePhraseLimit <= 0 {
		return fmt.Errorf("VOICE_LISTEN_TIMEOUT and VOICE_PHRASE_LIMIT must be positive")
	}
	if strings.TrimSpace(c.ExportFilename) == "" {
		return fmt.Errorf("EXPORT_FILENAME must not be empty")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DefaultModel is the first catalog entry.
func (c Config) DefaultModel() string {
	if len(c.GeminiModels) == 0 {
		return ""
	}
	return c.GeminiModels[0]
}

// ParseLogLevel maps APP_LOG_LEVEL to a slog level.
func ParseLogLevel(v string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("APP_LOG_LEVEL parse error: unknown level %q", v)
	}
}

func compact(in []string) []string {
	out := in[:0]
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
