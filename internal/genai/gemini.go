package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ent0n29/voicechat/internal/chat"
	"github.com/ent0n29/voicechat/internal/reliability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "v1beta"

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second

	maxResponseBytes = 8 << 20
)

// APIError is a non-2xx answer from the Gemini API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini http status %d", e.StatusCode)
	}
	if e.Status == "" {
		return fmt.Sprintf("gemini http status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini http status %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return reliability.IsRetryableHTTPStatus(e.StatusCode)
}

// GeminiClient talks to the Generative Language REST API.
type GeminiClient struct {
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

func NewGeminiClient(cfg Config) *GeminiClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &GeminiClient{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		maxRetries: retries,
	}
}

// Configure checks that the model exists for the key and returns a completer bound to both.
func (c *GeminiClient) Configure(ctx context.Context, creds chat.Credentials) (chat.Completer, error) {
	model := normalizeModel(creds.ModelName)
	if model == "" {
		return nil, errors.New("model name is empty")
	}
	endpoint := fmt.Sprintf("%s/%s/models/%s", c.baseURL, apiVersion, url.PathEscape(model))
	var info struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, creds.APIKey, "", nil, &info); err != nil {
		return nil, fmt.Errorf("load model %q: %w", model, err)
	}
	return &geminiCompleter{client: c, apiKey: creds.APIKey, model: model}, nil
}

// Upload stores data with the Files API.
func (c *GeminiClient) Upload(ctx context.Context, apiKey string, upload chat.Upload) (chat.FileReference, error) {
	if len(upload.Data) == 0 {
		return chat.FileReference{}, errors.New("empty file")
	}
	mimeType := strings.TrimSpace(upload.MIMEType)
	if mimeType == "" {
		mimeType = http.DetectContentType(upload.Data)
	}

	endpoint := fmt.Sprintf("%s/upload/%s/files?uploadType=media", c.baseURL, apiVersion)
	var out struct {
		File struct {
			Name        string `json:"name"`
			URI         string `json:"uri"`
			MIMEType    string `json:"mimeType"`
			DisplayName string `json:"displayName"`
		} `json:"file"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, apiKey, mimeType, upload.Data, &out); err != nil {
		return chat.FileReference{}, fmt.Errorf("upload %q: %w", upload.Name, err)
	}
	if out.File.URI == "" {
		return chat.FileReference{}, fmt.Errorf("upload %q: response missing file uri", upload.Name)
	}

	ref := chat.FileReference{
		Name:        out.File.Name,
		URI:         out.File.URI,
		MIMEType:    out.File.MIMEType,
		DisplayName: out.File.DisplayName,
	}
	if ref.MIMEType == "" {
		ref.MIMEType = mimeType
	}
	if ref.DisplayName == "" {
		ref.DisplayName = upload.Name
	}
	return ref, nil
}

type geminiCompleter struct {
	client *GeminiClient
	apiKey string
	model  string
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mime_type,omitempty"`
	FileURI  string `json:"file_uri"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (g *geminiCompleter) Complete(ctx context.Context, inputs []chat.Input) (string, error) {
	req := generateRequest{Contents: []content{{Role: "user", Parts: toParts(inputs)}}}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", g.client.baseURL, apiVersion, url.PathEscape(g.model))
	var res generateResponse
	if err := g.client.do(ctx, http.MethodPost, endpoint, g.apiKey, "application/json", payload, &res); err != nil {
		return "", err
	}
	return responseText(res)
}

func toParts(inputs []chat.Input) []part {
	parts := make([]part, 0, len(inputs))
	for _, in := range inputs {
		if in.IsFile() {
			parts = append(parts, part{FileData: &fileData{MIMEType: in.File.MIMEType, FileURI: in.File.URI}})
			continue
		}
		parts = append(parts, part{Text: in.Text})
	}
	return parts
}

func responseText(res generateResponse) (string, error) {
	if len(res.Candidates) == 0 {
		if res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", res.PromptFeedback.BlockReason)
		}
		return "", errors.New("response has no candidates")
	}
	var out strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	if out.Len() == 0 {
		reason := res.Candidates[0].FinishReason
		if reason == "" {
			reason = "empty"
		}
		return "", fmt.Errorf("response has no text (finish reason %s)", reason)
	}
	return out.String(), nil
}

func (c *GeminiClient) do(ctx context.Context, method, endpoint, apiKey, contentType string, body []byte, out any) error {
	var lastErr error
	var hint time.Duration
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(reliability.RetryDelay(attempt-1, retryBaseDelay, retryMaxDelay, hint))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.doOnce(ctx, method, endpoint, apiKey, contentType, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return err
		}
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Retryable():
			hint = apiErr.RetryAfter
		case reliability.IsTransientNetworkError(err):
			hint = 0
		default:
			return err
		}
	}
	return lastErr
}

func (c *GeminiClient) doOnce(ctx context.Context, method, endpoint, apiKey, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.Contains(endpoint, "/upload/") {
		req.Header.Set("X-Goog-Upload-Protocol", "raw")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := decodeAPIError(res.StatusCode, raw)
		if d, ok := reliability.ParseRetryAfter(res.Header.Get("Retry-After"), time.Now()); ok {
			apiErr.RetryAfter = d
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Status = envelope.Error.Status
		return apiErr
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	apiErr.Message = msg
	return apiErr
}

func normalizeModel(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "models/")
}
