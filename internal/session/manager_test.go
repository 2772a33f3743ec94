package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/voicechat/internal/chat"
	"github.com/ent0n29/voicechat/internal/voice"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, inputs []chat.Input) (string, error) {
	return "echo: " + inputs[len(inputs)-1].Text, nil
}

type echoClient struct{}

func (echoClient) Configure(context.Context, chat.Credentials) (chat.Completer, error) {
	return echoCompleter{}, nil
}

func newCore(t *testing.T) *chat.Session {
	t.Helper()
	core := chat.NewSession(echoClient{})
	if err := core.Configure(context.Background(), chat.Credentials{APIKey: "k", ModelName: "m"}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	return core
}

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create(newCore(t), nil)
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	core, err := m.Chat(s.ID)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if _, err := core.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusActive || !got.Configured || got.Model != "m" || got.Turns != 2 {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if ended.Turns != 2 {
		t.Fatalf("ended Turns = %d, want 2", ended.Turns)
	}
	if _, err := m.Chat(s.ID); !errors.Is(err, ErrEnded) {
		t.Fatalf("Chat() after End error = %v, want ErrEnded", err)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}

func TestManagerUnknownSession(t *testing.T) {
	m := NewManager(time.Minute)
	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := m.End("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("End() error = %v, want ErrNotFound", err)
	}
	if err := m.Touch("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Touch() error = %v, want ErrNotFound", err)
	}
}

func TestManagerCapture(t *testing.T) {
	m := NewManager(time.Minute)
	withVoice := m.Create(newCore(t), voice.NewStreamCapture(voice.NewMockTranscriber(), 16000))
	withoutVoice := m.Create(newCore(t), nil)

	if _, err := m.Capture(withVoice.ID); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if _, err := m.Capture(withoutVoice.ID); err == nil {
		t.Fatalf("Capture() without voice error = nil")
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create(newCore(t), nil)

	var (
		mu      sync.Mutex
		expired []string
	)
	m.SetExpireHook(func(s *Session) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, s.ID)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	if _, err := m.Chat(s.ID); !errors.Is(err, ErrEnded) {
		t.Fatalf("Chat() error = %v, want ErrEnded", err)
	}

	mu.Lock()
	got := append([]string(nil), expired...)
	mu.Unlock()
	if len(got) != 1 || got[0] != s.ID {
		t.Fatalf("expired = %v, want [%s]", got, s.ID)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after purge error = %v, want ErrNotFound", err)
	}
}
