package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ent0n29/voicechat/internal/chat"
)

func newTestClient(url string, retries int) *GeminiClient {
	return NewGeminiClient(Config{
		BaseURL:        url,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     retries,
		RequestsPerSec: 100,
	})
}

func TestGeminiConfigureAndComplete(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "k1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"bad key","status":"UNAUTHENTICATED"}}`))
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/models/gemini-1.5-flash":
			_, _ = w.Write([]byte(`{"name":"models/gemini-1.5-flash"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1beta/models/gemini-1.5-flash:generateContent":
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decode body: %v", err)
			}
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello"},{"text":"!"}]},"finishReason":"STOP"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	completer, err := client.Configure(context.Background(), chat.Credentials{APIKey: "k1", ModelName: "models/gemini-1.5-flash"})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	ref := chat.FileReference{Name: "files/abc", URI: "https://files.test/abc", MIMEType: "application/pdf"}
	reply, err := completer.Complete(context.Background(), []chat.Input{chat.FileInput(ref), chat.TextInput("Hi")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "Hello!" {
		t.Fatalf("reply = %q, want %q", reply, "Hello!")
	}

	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request contents: %+v", gotBody.Contents)
	}
	parts := gotBody.Contents[0].Parts
	if parts[0].FileData == nil || parts[0].FileData.FileURI != ref.URI {
		t.Fatalf("parts[0] = %+v, want file_data first", parts[0])
	}
	if parts[1].Text != "Hi" {
		t.Fatalf("parts[1] = %+v, want prompt text", parts[1])
	}
}

func TestGeminiConfigureRejectsBadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Configure(context.Background(), chat.Credentials{APIKey: "bad", ModelName: "gemini-1.5-pro"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Configure() error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "API key not valid" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if apiErr.Retryable() {
		t.Fatalf("400 should not be retryable")
	}
}

func TestGeminiRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`overloaded`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	c := &geminiCompleter{client: newTestClient(srv.URL, 1), apiKey: "k", model: "gemini-1.5-flash"}
	reply, err := c.Complete(context.Background(), []chat.Input{chat.TextInput("hi")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "ok" || calls.Load() != 2 {
		t.Fatalf("reply = %q after %d calls, want ok after 2", reply, calls.Load())
	}
}

func TestGeminiHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"later"}]}}]}`))
	}))
	defer srv.Close()

	c := &geminiCompleter{client: newTestClient(srv.URL, 2), apiKey: "k", model: "gemini-1.5-flash"}
	reply, err := c.Complete(context.Background(), []chat.Input{chat.TextInput("hi")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "later" || calls.Load() != 2 {
		t.Fatalf("reply = %q after %d calls, want later after 2", reply, calls.Load())
	}
}

func TestGeminiRetryAfterParsedIntoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, 0).doOnce(context.Background(), http.MethodGet, srv.URL, "k", "", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("doOnce() error = %v, want APIError", err)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter = %v, want 7s", apiErr.RetryAfter)
	}
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	c := &geminiCompleter{client: newTestClient(srv.URL, 0), apiKey: "k", model: "gemini-1.5-flash"}
	_, err := c.Complete(context.Background(), []chat.Input{chat.TextInput("hi")})
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("Complete() error = %v, want blocked prompt error", err)
	}
}

func TestGeminiUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/v1beta/files" || r.URL.Query().Get("uploadType") != "media" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "hello file" {
			t.Errorf("upload body = %q", body)
		}
		if r.Header.Get("Content-Type") != "text/plain" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		_, _ = w.Write([]byte(`{"file":{"name":"files/xyz","uri":"https://files.test/xyz","mimeType":"text/plain"}}`))
	}))
	defer srv.Close()

	ref, err := newTestClient(srv.URL, 0).Upload(context.Background(), "k", chat.Upload{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("hello file")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if ref.Name != "files/xyz" || ref.URI != "https://files.test/xyz" || ref.DisplayName != "notes.txt" {
		t.Fatalf("unexpected reference: %+v", ref)
	}
}

func TestNewSelectsMode(t *testing.T) {
	cases := []struct {
		mode string
		want string
	}{
		{mode: "", want: "gemini"},
		{mode: "gemini", want: "gemini"},
		{mode: "MOCK", want: "mock"},
	}
	for _, tc := range cases {
		_, got, err := New(Config{Mode: tc.mode, BaseURL: "http://localhost"})
		if err != nil {
			t.Fatalf("New(%q) error = %v", tc.mode, err)
		}
		if got != tc.want {
			t.Fatalf("New(%q) provider = %q, want %q", tc.mode, got, tc.want)
		}
	}
	if _, _, err := New(Config{Mode: "openai"}); err == nil {
		t.Fatalf("New(openai) error = nil, want error")
	}
}

func TestMockClientReply(t *testing.T) {
	client := NewMockClient()
	completer, err := client.Configure(context.Background(), chat.Credentials{APIKey: "k", ModelName: "m"})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	ref, err := client.Upload(context.Background(), "k", chat.Upload{Name: "a.txt", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	reply, err := completer.Complete(context.Background(), []chat.Input{chat.FileInput(ref), chat.TextInput("hi")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "You said: hi\nWith file: a.txt" {
		t.Fatalf("reply = %q", reply)
	}
}
