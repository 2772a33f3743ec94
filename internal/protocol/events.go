package protocol

import (
	"encoding/base64"
	"errors"
	"time"
)

// System event codes.
const (
	CodeConnected = "connected"
	CodeListening = "listening"
)

// Error sources.
const (
	SourceGateway = "gateway"
	SourceVoice   = "voice"
)

var ErrInvalidAudio = errors.New("pcm16_base64 is not valid base64")

// PCM decodes the chunk payload. An odd byte count is not a whole PCM16 frame.
func (m ClientAudioChunk) PCM() ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(m.PCM16Base64)
	if err != nil || len(pcm)%2 != 0 {
		return nil, ErrInvalidAudio
	}
	return pcm, nil
}

func NewSystemEvent(sessionID, code string) SystemEvent {
	return SystemEvent{Type: TypeSystemEvent, SessionID: sessionID, Code: code}
}

func NewSTTCommitted(sessionID, text string, at time.Time) STTCommitted {
	return STTCommitted{Type: TypeSTTCommitted, SessionID: sessionID, Text: text, TSMs: at.UnixMilli()}
}

func NewErrorEvent(sessionID, code, source string, retryable bool, detail string) ErrorEvent {
	return ErrorEvent{
		Type:      TypeErrorEvent,
		SessionID: sessionID,
		Code:      code,
		Source:    source,
		Retryable: retryable,
		Detail:    detail,
	}
}

// TypeOf reports the wire type of any protocol message value.
func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case ClientAudioChunk:
		return m.Type, true
	case ClientControl:
		return m.Type, true
	case STTCommitted:
		return m.Type, true
	case SystemEvent:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
