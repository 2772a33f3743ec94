package httpapi

import "net/http"

type uiSettingsResponse struct {
	Models          []string `json:"models"`
	DefaultModel    string   `json:"default_model"`
	DefaultKey      bool     `json:"default_key"`
	VoiceEnabled    bool     `json:"voice_enabled"`
	SampleRate      int      `json:"sample_rate"`
	ListenTimeoutMS int64    `json:"listen_timeout_ms"`
	PhraseLimitMS   int64    `json:"phrase_limit_ms"`
	UploadMaxBytes  int64    `json:"upload_max_bytes"`
	ExportFilename  string   `json:"export_filename"`
}

func (s *Server) handleUISettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, uiSettingsResponse{
		Models:          s.cfg.GeminiModels,
		DefaultModel:    s.cfg.DefaultModel(),
		DefaultKey:      s.cfg.GeminiAPIKey != "",
		VoiceEnabled:    s.backends.Transcriber != nil,
		SampleRate:      s.cfg.VoiceSampleRate,
		ListenTimeoutMS: s.cfg.VoiceListenTimeout.Milliseconds(),
		PhraseLimitMS:   s.cfg.VoicePhraseLimit.Milliseconds(),
		UploadMaxBytes:  s.cfg.UploadMaxBytes,
		ExportFilename:  s.cfg.ExportFilename,
	})
}
