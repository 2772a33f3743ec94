package app

import (
	"fmt"

	"github.com/ent0n29/voicechat/internal/config"
	"github.com/ent0n29/voicechat/internal/voice"
)

type VoiceInfo struct {
	Provider   string
	Detail     string
	SampleRate int
}

type voiceSetup struct {
	VoiceInfo
	transcriber voice.Transcriber
}

func resolveVoice(cfg config.Config) (voiceSetup, error) {
	t, provider, err := voice.NewTranscriber(voice.Config{
		Mode:             cfg.VoiceProvider,
		WhisperServerURL: cfg.WhisperServerURL,
		GoogleAPIKey:     cfg.GoogleSpeechAPIKey,
		GoogleLanguage:   cfg.GoogleSpeechLanguage,
		RequestTimeout:   cfg.AIRequestTimeout,
	})
	if err != nil {
		return voiceSetup{}, fmt.Errorf("voice provider init failed: %w", err)
	}

	var detail string
	switch provider {
	case "whisper":
		detail = "whisper.cpp server at " + cfg.WhisperServerURL
	case "google":
		detail = "google speech-to-text (" + cfg.GoogleSpeechLanguage + ")"
	default:
		detail = "mock (no speech backend configured)"
	}

	return voiceSetup{
		VoiceInfo: VoiceInfo{
			Provider:   provider,
			Detail:     detail,
			SampleRate: cfg.VoiceSampleRate,
		},
		transcriber: t,
	}, nil
}
