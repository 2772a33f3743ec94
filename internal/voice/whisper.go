package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/voicechat/internal/audio"
)

// WhisperTranscriber posts utterances to a whisper.cpp server's /inference endpoint.
type WhisperTranscriber struct {
	baseURL string
	client  *http.Client

	// Serialize requests; the server is typically configured with a single processor.
	mu sync.Mutex
}

func NewWhisperTranscriber(baseURL string, timeout time.Duration) *WhisperTranscriber {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &WhisperTranscriber{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, pcm16le []byte, sampleRate int) (string, error) {
	if len(pcm16le) == 0 {
		return "", nil
	}
	wav, err := audio.EncodeWAVPCM16LE(pcm16le, sampleRate)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		_ = mw.Close()
		return "", err
	}
	if _, err := fw.Write(wav); err != nil {
		_ = mw.Close()
		return "", err
	}
	_ = mw.WriteField("temperature", "0.0")
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/inference", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper-server request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper-server HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}
