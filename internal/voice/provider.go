package voice

import (
	"fmt"
	"strings"
	"time"
)

// Config selects and configures a Transcriber.
type Config struct {
	Mode             string
	WhisperServerURL string
	GoogleBaseURL    string
	GoogleAPIKey     string
	GoogleLanguage   string
	RequestTimeout   time.Duration
}

// NewTranscriber resolves cfg.Mode (auto|whisper|google|mock) and returns the
// transcriber with the name of the backend that was picked.
func NewTranscriber(cfg Config) (Transcriber, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	whisperURL := strings.TrimSpace(cfg.WhisperServerURL)
	googleKey := strings.TrimSpace(cfg.GoogleAPIKey)

	switch mode {
	case "whisper":
		if whisperURL == "" {
			return nil, "", fmt.Errorf("VOICE_PROVIDER=whisper but WHISPER_SERVER_URL is not set")
		}
		return NewWhisperTranscriber(whisperURL, cfg.RequestTimeout), "whisper", nil
	case "google":
		if googleKey == "" {
			return nil, "", fmt.Errorf("VOICE_PROVIDER=google but GOOGLE_SPEECH_API_KEY is not set")
		}
		return NewGoogleSpeechTranscriber(cfg.GoogleBaseURL, googleKey, cfg.GoogleLanguage, cfg.RequestTimeout), "google", nil
	case "mock":
		return NewMockTranscriber(), "mock", nil
	case "auto":
		if whisperURL != "" {
			return NewWhisperTranscriber(whisperURL, cfg.RequestTimeout), "whisper", nil
		}
		if googleKey != "" {
			return NewGoogleSpeechTranscriber(cfg.GoogleBaseURL, googleKey, cfg.GoogleLanguage, cfg.RequestTimeout), "google", nil
		}
		return NewMockTranscriber(), "mock", nil
	default:
		return nil, "", fmt.Errorf("invalid VOICE_PROVIDER: %q (expected auto|whisper|google|mock)", cfg.Mode)
	}
}
