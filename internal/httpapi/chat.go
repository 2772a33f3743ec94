package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/voicechat/internal/archive"
	"github.com/ent0n29/voicechat/internal/chat"
	"github.com/ent0n29/voicechat/internal/observability"
	"github.com/ent0n29/voicechat/internal/session"
	"github.com/ent0n29/voicechat/internal/voice"
)

const multipartOverhead = 1 << 20

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"models":  s.cfg.GeminiModels,
		"default": s.cfg.DefaultModel(),
	})
}

// credentials fills omitted fields from server defaults and checks the model catalog.
func (s *Server) credentials(apiKey, model string) (chat.Credentials, error) {
	creds := chat.Credentials{
		APIKey:    strings.TrimSpace(apiKey),
		ModelName: strings.TrimSpace(model),
	}
	if creds.APIKey == "" {
		creds.APIKey = s.cfg.GeminiAPIKey
	}
	if creds.ModelName == "" {
		creds.ModelName = s.cfg.DefaultModel()
	}
	if !slices.Contains(s.cfg.GeminiModels, creds.ModelName) {
		return chat.Credentials{}, fmt.Errorf("model %q is not in the catalog", creds.ModelName)
	}
	return creds, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.backends.AI == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "ai client not configured")
		return
	}
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	creds, err := s.credentials(req.APIKey, req.ModelName)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_model", err.Error())
		return
	}

	core := chat.NewSession(s.backends.AI)
	var configErr error
	if creds.APIKey != "" {
		configErr = core.Configure(r.Context(), creds)
		if configErr != nil {
			slog.Warn("session configuration failed", "model", creds.ModelName, "err", configErr)
		}
	}

	var capture *voice.StreamCapture
	if s.backends.Transcriber != nil {
		capture = voice.NewStreamCapture(s.backends.Transcriber, s.cfg.VoiceSampleRate)
	}

	sess := s.sessions.Create(core, capture)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	slog.Info("session created", "session_id", sess.ID, "configured", sess.Configured, "model", sess.Model)

	resp := session.CreateResponse{
		SessionID:       sess.ID,
		Status:          sess.Status,
		ModelName:       sess.Model,
		Configured:      sess.Configured,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.sessions.InactivityTimeout().Milliseconds(),
	}
	if configErr != nil {
		resp.ConfigError = configErr.Error()
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type configureRequest struct {
	APIKey    string `json:"api_key"`
	ModelName string `json:"model_name"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	core, err := s.sessions.Chat(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	var req configureRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	creds, err := s.credentials(req.APIKey, req.ModelName)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_model", err.Error())
		return
	}
	if err := core.Configure(r.Context(), creds); err != nil {
		s.metrics.SessionEvents.WithLabelValues("configure_failed").Inc()
		slog.Warn("session configuration failed", "session_id", id, "model", creds.ModelName, "err", err)
		respondError(w, http.StatusUnprocessableEntity, "configuration_failed", err.Error())
		return
	}
	s.metrics.SessionEvents.WithLabelValues("configured").Inc()

	sess, err := s.sessions.Get(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	core, err := s.sessions.Chat(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.UploadMaxBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	if int64(len(data)) > s.cfg.UploadMaxBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file exceeds %d bytes", s.cfg.UploadMaxBytes))
		return
	}

	started := time.Now()
	ref, err := core.AttachUpload(r.Context(), s.backends.AI, chat.Upload{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		outcome := observability.OutcomeError
		if errors.Is(err, chat.ErrConfiguration) {
			outcome = observability.OutcomeRejected
		}
		s.metrics.ObserveUpload(outcome, time.Since(started))
		slog.Warn("file upload failed", "session_id", id, "file", header.Filename, "err", err)
		respondChatError(w, err)
		return
	}
	s.metrics.ObserveUpload(observability.OutcomeOK, time.Since(started))
	slog.Info("file attached", "session_id", id, "file", ref.DisplayName, "bytes", len(data))
	respondJSON(w, http.StatusOK, map[string]any{"file": ref})
}

func (s *Server) handleDetachFile(w http.ResponseWriter, r *http.Request) {
	core, err := s.sessions.Chat(chi.URLParam(r, "id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	core.DetachFile()
	w.WriteHeader(http.StatusNoContent)
}

type sendMessageRequest struct {
	VoiceText string `json:"voice_text"`
	TypedText string `json:"typed_text"`
}

type sendMessageResponse struct {
	Status string       `json:"status"`
	Source string       `json:"source,omitempty"`
	Prompt string       `json:"prompt,omitempty"`
	Reply  string       `json:"reply,omitempty"`
	Turns  []chat.Turn  `json:"turns,omitempty"`
	Error  *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	core, err := s.sessions.Chat(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	prompt, ok := chat.ResolveNextPrompt(req.VoiceText, req.TypedText)
	if !ok {
		respondJSON(w, http.StatusOK, sendMessageResponse{Status: "no_input"})
		return
	}
	source := "typed"
	if req.VoiceText != "" {
		source = "voice"
	}

	started := time.Now()
	res, err := core.Submit(r.Context(), prompt)
	elapsed := time.Since(started)
	switch {
	case err == nil && res.Skipped:
		s.metrics.ObserveCompletion(observability.OutcomeSkipped, elapsed)
		respondJSON(w, http.StatusOK, sendMessageResponse{Status: "skipped", Source: source})
		return
	case errors.Is(err, chat.ErrConfiguration):
		s.metrics.ObserveCompletion(observability.OutcomeRejected, elapsed)
		respondChatError(w, err)
		return
	case errors.Is(err, context.DeadlineExceeded):
		s.metrics.ObserveCompletion(observability.OutcomeTimeout, elapsed)
	case err != nil:
		s.metrics.ObserveCompletion(observability.OutcomeError, elapsed)
	default:
		s.metrics.ObserveCompletion(observability.OutcomeOK, elapsed)
	}

	if err != nil {
		slog.Warn("completion failed", "session_id", id, "source", source, "elapsed_ms", elapsed.Milliseconds(), "err", err)
		respondJSON(w, http.StatusBadGateway, sendMessageResponse{
			Status: "error",
			Source: source,
			Prompt: prompt,
			Turns:  core.Transcript(),
			Error:  &errorDetail{Code: "service_error", Message: err.Error()},
		})
		return
	}
	slog.Debug("completion ok", "session_id", id, "source", source, "elapsed_ms", elapsed.Milliseconds())
	respondJSON(w, http.StatusOK, sendMessageResponse{
		Status: "ok",
		Source: source,
		Prompt: res.Prompt,
		Reply:  res.Reply,
		Turns:  core.Transcript(),
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	core, err := s.sessions.Chat(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	resp := map[string]any{
		"session_id": id,
		"turns":      core.Transcript(),
	}
	if ref, ok := core.File(); ok {
		resp["file"] = ref
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	core, err := s.sessions.Chat(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	turns := core.Transcript()
	text := chat.ExportTurns(turns)
	filename := s.cfg.ExportFilename
	if filename == "" {
		filename = chat.DefaultExportFilename
	}

	if s.backends.Archive != nil {
		rec, err := s.backends.Archive.Record(r.Context(), archive.ExportRecord{
			SessionID: id,
			Filename:  filename,
			ModelName: core.Model(),
			Turns:     len(turns),
			Content:   text,
		})
		if err != nil {
			s.metrics.Exports.WithLabelValues("failed").Inc()
			slog.Warn("export archive failed", "session_id", id, "err", err)
		} else {
			s.metrics.Exports.WithLabelValues("saved").Inc()
			w.Header().Set("X-Export-ID", rec.ID)
		}
	} else {
		s.metrics.Exports.WithLabelValues("disabled").Inc()
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if s.backends.Archive == nil {
		respondError(w, http.StatusNotImplemented, "archive_disabled", "export archive is not configured")
		return
	}
	items, err := s.backends.Archive.ListBySession(r.Context(), chi.URLParam(r, "id"), archive.DefaultListLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exports": items})
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if s.backends.Archive == nil {
		respondError(w, http.StatusNotImplemented, "archive_disabled", "export archive is not configured")
		return
	}
	rec, err := s.backends.Archive.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, archive.ErrNotFound) {
		respondError(w, http.StatusNotFound, "export_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	slog.Info("session ended", "session_id", id, "turns", sess.Turns)
	respondJSON(w, http.StatusOK, sess)
}
