package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ent0n29/voicechat/internal/audio"
)

const (
	defaultListenTimeout = 5 * time.Second
	defaultPhraseLimit   = 10 * time.Second
)

// StreamCapture turns a pushed audio stream (e.g. browser microphone chunks
// over a websocket) into blocking utterance captures. At most one capture
// runs at a time; audio fed while no capture is armed is discarded.
type StreamCapture struct {
	transcriber Transcriber
	sampleRate  int

	mu     sync.Mutex
	armed  bool
	buf    *Buffer
	heard  chan struct{}
	commit chan struct{}
	full   chan struct{}
}

func NewStreamCapture(transcriber Transcriber, sampleRate int) *StreamCapture {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &StreamCapture{transcriber: transcriber, sampleRate: sampleRate}
}

// SampleRate is the rate every fed chunk must use.
func (c *StreamCapture) SampleRate() int { return c.sampleRate }

// Listening reports whether a capture is armed.
func (c *StreamCapture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Feed appends a chunk to the running capture.
func (c *StreamCapture) Feed(pcm16le []byte, sampleRate int) error {
	if sampleRate != c.sampleRate {
		return fmt.Errorf("sample rate %d does not match stream rate %d", sampleRate, c.sampleRate)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return ErrNotListening
	}
	if len(pcm16le) == 0 {
		return nil
	}
	if c.buf.Append(pcm16le) {
		signal(c.full)
	}
	signal(c.heard)
	return nil
}

// Commit ends the running utterance early. It is a no-op when nothing is armed.
func (c *StreamCapture) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed {
		signal(c.commit)
	}
}

// CaptureUtterance arms the stream, waits for audio, then transcribes once the
// caller commits, the phrase limit elapses or the buffer fills.
func (c *StreamCapture) CaptureUtterance(ctx context.Context, opts CaptureOptions) (string, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultListenTimeout
	}
	if opts.PhraseLimit <= 0 {
		opts.PhraseLimit = defaultPhraseLimit
	}

	c.mu.Lock()
	if c.armed {
		c.mu.Unlock()
		return "", ErrCaptureBusy
	}
	maxSamples := int(opts.PhraseLimit.Seconds() * float64(c.sampleRate))
	c.armed = true
	c.buf = NewBuffer(maxSamples)
	c.heard = make(chan struct{}, 1)
	c.commit = make(chan struct{}, 1)
	c.full = make(chan struct{}, 1)
	heard, commit, full, buf := c.heard, c.commit, c.full, c.buf
	c.mu.Unlock()
	defer c.disarm()
	if opts.OnListening != nil {
		opts.OnListening()
	}

	listen := time.NewTimer(opts.Timeout)
	defer listen.Stop()
	committed := false
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-listen.C:
		return "", fmt.Errorf("%w: no audio within %s", ErrTimeout, opts.Timeout)
	case <-commit:
		// audio and commit may arrive together
		if buf.Samples() == 0 {
			return "", fmt.Errorf("%w: no audio captured", ErrRecognition)
		}
		committed = true
	case <-heard:
	}

	if !committed {
		phrase := time.NewTimer(opts.PhraseLimit)
		defer phrase.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-commit:
		case <-full:
		case <-phrase.C:
		}
	}

	c.disarm()
	pcm := buf.Drain()
	slog.Debug("utterance captured", "audio_ms", audio.PCM16LEDuration(pcm, c.sampleRate).Milliseconds())
	if c.transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", ErrRecognition)
	}
	text, err := c.transcriber.Transcribe(ctx, pcm, c.sampleRate)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognition, err)
	}
	text = normalizeTranscript(text)
	if text == "" {
		return "", fmt.Errorf("%w: no speech recognized", ErrRecognition)
	}
	return text, nil
}

func (c *StreamCapture) disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
