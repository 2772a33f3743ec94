package voice

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRecognition means audio was captured but produced no usable transcript.
	ErrRecognition = errors.New("speech recognition failed")
	// ErrTimeout means no audio arrived within the listening window.
	ErrTimeout = errors.New("listening timed out")
	// ErrNotListening is returned by Feed when no capture is in progress.
	ErrNotListening = errors.New("no capture in progress")
	// ErrCaptureBusy is returned when a capture is already running on the stream.
	ErrCaptureBusy = errors.New("capture already in progress")
)

// CaptureOptions bounds a single utterance.
type CaptureOptions struct {
	// Timeout is how long to wait for the first audio.
	Timeout time.Duration
	// PhraseLimit caps the utterance length once audio has started.
	PhraseLimit time.Duration
	// OnListening, if set, runs once the stream accepts audio.
	OnListening func()
}

// Capturer produces one transcript per call, blocking until audio
// acquisition and transcription finish or time out.
type Capturer interface {
	CaptureUtterance(ctx context.Context, opts CaptureOptions) (string, error)
}

// Transcriber turns a complete PCM16LE mono utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm16le []byte, sampleRate int) (string, error)
}
