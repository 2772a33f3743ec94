// Package genai implements the AI completion and file upload capabilities used by chat sessions.
package genai

import (
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/voicechat/internal/chat"
)

// Client is the full AI capability: configure completers and upload files.
type Client interface {
	chat.Client
	chat.Uploader
}

// Config controls client construction.
type Config struct {
	Mode           string
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	RequestsPerSec float64
}

// New builds the client selected by cfg.Mode.
func New(cfg Config) (Client, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "gemini":
		return NewGeminiClient(cfg), "gemini", nil
	case "mock":
		return NewMockClient(), "mock", nil
	case "auto":
		// Sessions supply their own keys, so the real backend is always usable
		// unless the base URL was explicitly blanked out.
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return NewMockClient(), "mock", nil
		}
		return NewGeminiClient(cfg), "gemini", nil
	default:
		return nil, "", fmt.Errorf("unsupported ai provider %q (expected auto|gemini|mock)", cfg.Mode)
	}
}
