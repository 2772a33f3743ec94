package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/voicechat/internal/archive"
	"github.com/ent0n29/voicechat/internal/chat"
	"github.com/ent0n29/voicechat/internal/config"
	"github.com/ent0n29/voicechat/internal/observability"
	"github.com/ent0n29/voicechat/internal/session"
	"github.com/ent0n29/voicechat/internal/voice"
)

// AIClient is the completion and upload capability sessions are bound to.
type AIClient interface {
	chat.Client
	chat.Uploader
}

// Backends are the collaborators picked at startup.
type Backends struct {
	AI            AIClient
	AIProvider    string
	Transcriber   voice.Transcriber
	VoiceProvider string
	Archive       *archive.Archiver
	ArchiveMode   string
}

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	backends Backends
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(cfg config.Config, sessions *session.Manager, backends Backends, metrics *observability.Metrics) *Server {
	if metrics == nil {
		metrics = observability.NewMetrics(cfg.MetricsNamespace)
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		backends: backends,
		metrics:  metrics,
		static:   newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may drive a session's microphone.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/v1/models", s.handleListModels)
	r.Get("/v1/ui/settings", s.handleUISettings)
	r.Get("/v1/onboarding/status", s.handleOnboardingStatus)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Route("/v1/chat/session", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/ws", s.handleSessionWS)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Put("/config", s.handleConfigure)
			r.Post("/file", s.handleUploadFile)
			r.Delete("/file", s.handleDetachFile)
			r.Post("/messages", s.handleSendMessage)
			r.Get("/transcript", s.handleTranscript)
			r.Get("/export", s.handleExport)
			r.Get("/exports", s.handleListExports)
			r.Post("/end", s.handleEndSession)
		})
	})
	r.Get("/v1/exports/{id}", s.handleGetExport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"ai_provider":    s.backends.AIProvider,
		"voice_provider": s.backends.VoiceProvider,
		"archive_mode":   s.archiveMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.backends.AI == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "ai client not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) archiveMode() string {
	if s.backends.Archive == nil {
		return "disabled"
	}
	if s.backends.ArchiveMode == "" {
		return "memory"
	}
	return s.backends.ArchiveMode
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondSessionError maps session lookup failures.
func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrEnded):
		respondError(w, http.StatusGone, "session_ended", err.Error())
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// respondChatError maps session core failures to the JSON error envelope.
func respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrConfiguration):
		respondError(w, http.StatusPreconditionFailed, "configuration_required", err.Error())
	case errors.Is(err, chat.ErrUpload):
		respondError(w, http.StatusBadGateway, "upload_failed", err.Error())
	case errors.Is(err, chat.ErrService):
		respondError(w, http.StatusBadGateway, "service_error", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
