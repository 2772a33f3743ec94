package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/voicechat/internal/observability"
	"github.com/ent0n29/voicechat/internal/protocol"
	"github.com/ent0n29/voicechat/internal/session"
	"github.com/ent0n29/voicechat/internal/voice"
)

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	capture, err := s.sessions.Capture(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrEnded) {
			respondSessionError(w, err)
			return
		}
		respondError(w, http.StatusNotImplemented, "unavailable", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	send := func(msg any) {
		select {
		case outbound <- msg:
		default:
			// Keep websocket writes single-threaded; drop if the queue is saturated.
			if t, ok := protocol.TypeOf(msg); ok {
				s.metrics.WSMessages.WithLabelValues("dropped", string(t)).Inc()
			}
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := protocol.TypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	send(protocol.NewSystemEvent(sessionID, protocol.CodeConnected))

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	var captures sync.WaitGroup
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.NewErrorEvent(sessionID, "invalid_client_message", protocol.SourceGateway, false, err.Error()))
			continue
		}
		if t, ok := protocol.TypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		if err := s.sessions.Touch(sessionID); err != nil {
			send(protocol.NewErrorEvent(sessionID, "session_ended", protocol.SourceGateway, false, err.Error()))
			break
		}

		switch m := parsed.(type) {
		case protocol.ClientAudioChunk:
			pcm, err := m.PCM()
			if err != nil {
				send(protocol.NewErrorEvent(sessionID, "invalid_audio", protocol.SourceGateway, false, err.Error()))
				continue
			}
			if err := capture.Feed(pcm, m.SampleRate); err != nil && !errors.Is(err, voice.ErrNotListening) {
				send(protocol.NewErrorEvent(sessionID, "invalid_audio", protocol.SourceVoice, false, err.Error()))
			}
		case protocol.ClientControl:
			switch m.Action {
			case protocol.ActionStart:
				captures.Add(1)
				go func() {
					defer captures.Done()
					s.runCapture(ctx, sessionID, capture, send)
				}()
			case protocol.ActionCommit:
				capture.Commit()
			}
		}
	}

	cancel()
	captures.Wait()
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

// runCapture performs one blocking utterance capture and reports the result.
func (s *Server) runCapture(ctx context.Context, sessionID string, capture *voice.StreamCapture, send func(any)) {
	started := time.Now()
	text, err := capture.CaptureUtterance(ctx, voice.CaptureOptions{
		Timeout:     s.cfg.VoiceListenTimeout,
		PhraseLimit: s.cfg.VoicePhraseLimit,
		OnListening: func() {
			send(protocol.NewSystemEvent(sessionID, protocol.CodeListening))
		},
	})
	elapsed := time.Since(started)

	switch {
	case err == nil:
		s.metrics.ObserveVoiceCapture(observability.OutcomeOK, elapsed)
		send(protocol.NewSTTCommitted(sessionID, text, time.Now()))
	case ctx.Err() != nil:
		// connection closed mid-capture
	case errors.Is(err, voice.ErrTimeout):
		s.metrics.ObserveVoiceCapture(observability.OutcomeTimeout, elapsed)
		send(protocol.NewErrorEvent(sessionID, "capture_timeout", protocol.SourceVoice, true, err.Error()))
	case errors.Is(err, voice.ErrCaptureBusy):
		send(protocol.NewErrorEvent(sessionID, "capture_busy", protocol.SourceVoice, false, err.Error()))
	default:
		s.metrics.ObserveVoiceCapture(observability.OutcomeError, elapsed)
		slog.Warn("voice capture failed", "session_id", sessionID, "err", err)
		send(protocol.NewErrorEvent(sessionID, "recognition_failed", protocol.SourceVoice, true, err.Error()))
	}
}
