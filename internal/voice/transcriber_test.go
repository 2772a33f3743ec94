package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWhisperTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			http.NotFound(w, r)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		head := make([]byte, 4)
		_, _ = f.Read(head)
		if string(head) != "RIFF" {
			t.Errorf("upload is not a WAV file: %q", head)
		}
		_, _ = w.Write([]byte(`{"text":" hello from whisper "}`))
	}))
	defer srv.Close()

	got, err := NewWhisperTranscriber(srv.URL, time.Second).Transcribe(context.Background(), []byte{1, 0, 2, 0}, 16000)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "hello from whisper" {
		t.Fatalf("Transcribe() = %q", got)
	}
}

func TestGoogleSpeechTranscriber(t *testing.T) {
	pcm := []byte{1, 0, 2, 0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech:recognize" || r.URL.Query().Get("key") != "gk" {
			http.NotFound(w, r)
			return
		}
		var req recognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Config.Encoding != "LINEAR16" || req.Config.SampleRateHertz != 16000 || req.Config.LanguageCode != "it-IT" {
			t.Errorf("unexpected config: %+v", req.Config)
		}
		if req.Audio.Content != base64.StdEncoding.EncodeToString(pcm) {
			t.Errorf("unexpected audio content %q", req.Audio.Content)
		}
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"ciao","confidence":0.9}]},{"alternatives":[{"transcript":"mondo"}]}]}`))
	}))
	defer srv.Close()

	got, err := NewGoogleSpeechTranscriber(srv.URL, "gk", "it-IT", time.Second).Transcribe(context.Background(), pcm, 16000)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "ciao mondo" {
		t.Fatalf("Transcribe() = %q, want %q", got, "ciao mondo")
	}
}

func TestNewTranscriberModes(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
		err  bool
	}{
		{cfg: Config{}, want: "mock"},
		{cfg: Config{WhisperServerURL: "http://w"}, want: "whisper"},
		{cfg: Config{GoogleAPIKey: "k"}, want: "google"},
		{cfg: Config{Mode: "whisper"}, err: true},
		{cfg: Config{Mode: "google"}, err: true},
		{cfg: Config{Mode: "mock", WhisperServerURL: "http://w"}, want: "mock"},
		{cfg: Config{Mode: "nope"}, err: true},
	}
	for _, tc := range cases {
		_, got, err := NewTranscriber(tc.cfg)
		if tc.err {
			if err == nil {
				t.Fatalf("NewTranscriber(%+v) error = nil, want error", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewTranscriber(%+v) error = %v", tc.cfg, err)
		}
		if got != tc.want {
			t.Fatalf("NewTranscriber(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestNormalizeTranscript(t *testing.T) {
	cases := map[string]string{
		"[BLANK_AUDIO]":            "",
		" hi (music) there\n":      "hi there",
		"plain text":               "plain text",
		"  (Inaudible) [NOISE] ok": "ok",
	}
	for in, want := range cases {
		if got := normalizeTranscript(in); got != want {
			t.Fatalf("normalizeTranscript(%q) = %q, want %q", in, got, want)
		}
	}
}
