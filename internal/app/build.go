package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ent0n29/voicechat/internal/archive"
	"github.com/ent0n29/voicechat/internal/config"
	"github.com/ent0n29/voicechat/internal/genai"
	"github.com/ent0n29/voicechat/internal/httpapi"
	"github.com/ent0n29/voicechat/internal/observability"
	"github.com/ent0n29/voicechat/internal/session"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Backends httpapi.Backends
	Voice    VoiceInfo

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ai, aiProvider, err := genai.New(genai.Config{
		Mode:           cfg.AIProvider,
		BaseURL:        cfg.GeminiBaseURL,
		RequestTimeout: cfg.AIRequestTimeout,
		MaxRetries:     cfg.AIMaxRetries,
		RequestsPerSec: cfg.AIRequestsPerSec,
	})
	if err != nil {
		return nil, fmt.Errorf("ai client init failed: %w", err)
	}
	slog.Info("ai provider ready", "provider", aiProvider, "models", cfg.GeminiModels, "default_key", cfg.GeminiAPIKey != "")

	voiceSetup, err := resolveVoice(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("voice provider ready", "provider", voiceSetup.Provider, "detail", voiceSetup.Detail)

	store, archiveMode, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("archive store init failed: %w", err)
	}
	slog.Info("export archive ready", "mode", archiveMode, "redact_pii", cfg.ArchiveRedactPII)
	archiver := archive.NewArchiver(store, cfg.ArchiveRedactPII)

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		slog.Info("session expired", "session_id", s.ID, "turns", s.Turns)
	})

	backends := httpapi.Backends{
		AI:            ai,
		AIProvider:    aiProvider,
		Transcriber:   voiceSetup.transcriber,
		VoiceProvider: voiceSetup.Provider,
		Archive:       archiver,
		ArchiveMode:   archiveMode,
	}
	api := httpapi.New(cfg, sessions, backends, metrics)

	cleanup := func() error {
		var errs []error
		if err := archiver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
		return errors.Join(errs...)
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Metrics:  metrics,
		Backends: backends,
		Voice:    voiceSetup.VoiceInfo,
		Cleanup:  cleanup,
	}, nil
}
