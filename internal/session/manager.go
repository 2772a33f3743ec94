package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/voicechat/internal/chat"
	"github.com/ent0n29/voicechat/internal/voice"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrEnded    = errors.New("session ended")
)

// Session is a point-in-time view of a managed conversation.
type Session struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	Model          string    `json:"model_name,omitempty"`
	Configured     bool      `json:"configured"`
	FileName       string    `json:"file_name,omitempty"`
	Turns          int       `json:"turns"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

type entry struct {
	id             string
	status         Status
	core           *chat.Session
	capture        *voice.StreamCapture
	startedAt      time.Time
	lastActivityAt time.Time
}

// Manager owns every live chat session. Sessions are created explicitly and
// torn down by End or by the inactivity janitor.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*entry
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*entry),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// InactivityTimeout is the idle period after which the janitor ends a session.
func (m *Manager) InactivityTimeout() time.Duration {
	return m.inactivityTimeout
}

// Create registers core (and its optional voice stream) under a new ID.
func (m *Manager) Create(core *chat.Session, capture *voice.StreamCapture) *Session {
	now := time.Now().UTC()
	e := &entry{
		id:             uuid.NewString(),
		status:         StatusActive,
		core:           core,
		capture:        capture,
		startedAt:      now,
		lastActivityAt: now,
	}

	m.mu.Lock()
	m.sessions[e.id] = e
	m.mu.Unlock()
	return e.snapshot()
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e.snapshot(), nil
}

// Chat returns the session core of an active session and marks it as used.
func (m *Manager) Chat(sessionID string) (*chat.Session, error) {
	e, err := m.active(sessionID)
	if err != nil {
		return nil, err
	}
	return e.core, nil
}

// Capture returns the voice stream of an active session.
func (m *Manager) Capture(sessionID string) (*voice.StreamCapture, error) {
	e, err := m.active(sessionID)
	if err != nil {
		return nil, err
	}
	if e.capture == nil {
		return nil, errors.New("voice input is not available for this session")
	}
	return e.capture, nil
}

func (m *Manager) active(sessionID string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if e.status != StatusActive {
		return nil, ErrEnded
	}
	e.lastActivityAt = time.Now().UTC()
	return e, nil
}

func (m *Manager) Touch(sessionID string) error {
	_, err := m.active(sessionID)
	return err
}

// End marks the session ended and releases its core. Ending twice is not an error.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	snap := e.snapshot()
	if e.status == StatusActive {
		e.end(time.Now().UTC())
		snap.Status = StatusEnded
		snap.LastActivityAt = e.lastActivityAt
	}
	m.mu.Unlock()
	return snap, nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.sessions {
		if e.status == StatusActive {
			count++
		}
	}
	return count
}

// expireInactive ends idle sessions and forgets sessions that have been
// ended for longer than the inactivity timeout.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, e := range m.sessions {
		idle := now.Sub(e.lastActivityAt)
		if idle < m.inactivityTimeout {
			continue
		}
		if e.status != StatusActive {
			delete(m.sessions, id)
			continue
		}
		snap := e.snapshot()
		e.end(now)
		snap.Status = StatusEnded
		snap.LastActivityAt = now
		expired = append(expired, snap)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func (e *entry) end(now time.Time) {
	e.status = StatusEnded
	e.lastActivityAt = now
	e.core = nil
	e.capture = nil
}

func (e *entry) snapshot() *Session {
	s := &Session{
		ID:             e.id,
		Status:         e.status,
		StartedAt:      e.startedAt,
		LastActivityAt: e.lastActivityAt,
	}
	if e.core != nil {
		s.Model = e.core.Model()
		s.Configured = e.core.Configured()
		s.Turns = e.core.Len()
		if ref, ok := e.core.File(); ok {
			s.FileName = ref.DisplayName
		}
	}
	return s
}
