package app

import (
	"context"
	"testing"

	"github.com/ent0n29/voicechat/internal/config"
)

func TestBuildWithMockBackends(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"AI_PROVIDER":           "mock",
		"VOICE_PROVIDER":        "mock",
		"APP_METRICS_NAMESPACE": "test_app_build",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	res, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
	}()

	if res.Backends.AIProvider != "mock" || res.Voice.Provider != "mock" || res.Backends.ArchiveMode != "memory" {
		t.Fatalf("unexpected backends: %+v voice=%+v", res.Backends, res.Voice)
	}
	if res.API == nil || res.Sessions == nil || res.Metrics == nil {
		t.Fatalf("Build() left components nil: %+v", res)
	}
}

func TestResolveVoiceRejectsMissingBackend(t *testing.T) {
	cfg := config.Config{VoiceProvider: "whisper"}
	if _, err := resolveVoice(cfg); err == nil {
		t.Fatalf("resolveVoice() error = nil, want error for whisper without URL")
	}
}

func TestBuildRejectsUnknownAIProvider(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"AI_PROVIDER": "openai", "APP_METRICS_NAMESPACE": "test_app_bad"})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("Build() error = nil, want error")
	}
}
