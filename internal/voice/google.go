package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGoogleSpeechURL = "https://speech.googleapis.com"

// GoogleSpeechTranscriber sends utterances to the Cloud Speech-to-Text v1 recognize API.
type GoogleSpeechTranscriber struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

func NewGoogleSpeechTranscriber(baseURL, apiKey, language string, timeout time.Duration) *GoogleSpeechTranscriber {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGoogleSpeechURL
	}
	if strings.TrimSpace(language) == "" {
		language = "en-US"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GoogleSpeechTranscriber{
		baseURL:  baseURL,
		apiKey:   strings.TrimSpace(apiKey),
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

type recognizeRequest struct {
	Config struct {
		Encoding        string `json:"encoding"`
		SampleRateHertz int    `json:"sampleRateHertz"`
		LanguageCode    string `json:"languageCode"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

func (g *GoogleSpeechTranscriber) Transcribe(ctx context.Context, pcm16le []byte, sampleRate int) (string, error) {
	if len(pcm16le) == 0 {
		return "", nil
	}
	var req recognizeRequest
	req.Config.Encoding = "LINEAR16"
	req.Config.SampleRateHertz = sampleRate
	req.Config.LanguageCode = g.language
	req.Audio.Content = base64.StdEncoding.EncodeToString(pcm16le)

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := g.baseURL + "/v1/speech:recognize?key=" + url.QueryEscape(g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("google speech request: %w", err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("google speech HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}

	var out recognizeResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	parts := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
