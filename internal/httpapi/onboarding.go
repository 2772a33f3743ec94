package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	AIProvider    string            `json:"ai_provider"`
	VoiceProvider string            `json:"voice_provider"`
	ArchiveMode   string            `json:"archive_mode"`
	DefaultKey    bool              `json:"default_key"`
	Checks        []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, _ *http.Request) {
	checks := make([]onboardingCheck, 0, 8)
	checks = append(checks, s.aiChecks()...)
	checks = append(checks, s.voiceChecks()...)
	checks = append(checks, s.archiveChecks()...)

	respondJSON(w, http.StatusOK, onboardingStatusResponse{
		AIProvider:    s.backends.AIProvider,
		VoiceProvider: s.backends.VoiceProvider,
		ArchiveMode:   s.archiveMode(),
		DefaultKey:    s.cfg.GeminiAPIKey != "",
		Checks:        checks,
	})
}

func (s *Server) aiChecks() []onboardingCheck {
	out := make([]onboardingCheck, 0, 3)
	switch s.backends.AIProvider {
	case "gemini":
		out = append(out, onboardingCheck{
			ID:     "ai_provider",
			Status: "ok",
			Label:  "AI service",
			Detail: "gemini",
		})
	case "mock":
		out = append(out, onboardingCheck{
			ID:     "ai_provider",
			Status: "warn",
			Label:  "AI service",
			Detail: "Replies are placeholders.",
			Fix:    "Set AI_PROVIDER=gemini.",
		})
	default:
		out = append(out, onboardingCheck{
			ID:     "ai_provider",
			Status: "error",
			Label:  "AI service",
			Detail: "not configured",
		})
	}

	if s.cfg.GeminiAPIKey == "" {
		out = append(out, onboardingCheck{
			ID:     "ai_default_key",
			Status: "warn",
			Label:  "Default API key",
			Detail: "GEMINI_API_KEY is not set; each session must supply its own key",
			Fix:    "Set GEMINI_API_KEY or enter a key in the page settings.",
		})
	} else {
		out = append(out, onboardingCheck{
			ID:     "ai_default_key",
			Status: "ok",
			Label:  "Default API key",
			Detail: "present",
		})
	}

	out = append(out, onboardingCheck{
		ID:     "ai_models",
		Status: "ok",
		Label:  "Model catalog",
		Detail: strings.Join(s.cfg.GeminiModels, ", "),
	})
	return out
}

func (s *Server) voiceChecks() []onboardingCheck {
	switch s.backends.VoiceProvider {
	case "whisper":
		if err := probeTCP(s.cfg.WhisperServerURL); err != nil {
			return []onboardingCheck{{
				ID:     "voice_whisper",
				Status: "error",
				Label:  "Speech-to-text (whisper.cpp server)",
				Detail: fmt.Sprintf("server not reachable (%s)", s.cfg.WhisperServerURL),
				Fix:    "Start whisper-server or point WHISPER_SERVER_URL at a running instance.",
			}}
		}
		return []onboardingCheck{{
			ID:     "voice_whisper",
			Status: "ok",
			Label:  "Speech-to-text (whisper.cpp server)",
			Detail: "reachable",
		}}
	case "google":
		return []onboardingCheck{{
			ID:     "voice_google",
			Status: "ok",
			Label:  "Speech-to-text (Google)",
			Detail: "API key present, language " + s.cfg.GoogleSpeechLanguage,
		}}
	case "mock":
		return []onboardingCheck{{
			ID:     "voice_mock",
			Status: "warn",
			Label:  "Speech-to-text (mock)",
			Detail: "Voice input returns a fixed phrase.",
			Fix:    "Set WHISPER_SERVER_URL or GOOGLE_SPEECH_API_KEY.",
		}}
	default:
		return []onboardingCheck{{
			ID:     "voice_provider",
			Status: "warn",
			Label:  "Speech-to-text",
			Detail: "voice input disabled",
		}}
	}
}

func (s *Server) archiveChecks() []onboardingCheck {
	switch mode := s.archiveMode(); mode {
	case "postgres":
		return []onboardingCheck{{
			ID:     "archive",
			Status: "ok",
			Label:  "Export archive",
			Detail: "postgres",
		}}
	case "memory":
		return []onboardingCheck{{
			ID:     "archive",
			Status: "warn",
			Label:  "Export archive",
			Detail: "in-memory only",
			Fix:    "Set DATABASE_URL to keep exports across restarts.",
		}}
	default:
		return []onboardingCheck{{
			ID:     "archive",
			Status: "warn",
			Label:  "Export archive",
			Detail: mode,
		}}
	}
}

func probeTCP(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	host := strings.TrimSpace(u.Host)
	if host == "" {
		return fmt.Errorf("host missing")
	}
	addr := host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}
	c, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
	if err != nil {
		return err
	}
	return c.Close()
}
