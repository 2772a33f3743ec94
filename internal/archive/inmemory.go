package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps exports for the life of the process.
type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]ExportRecord
	bySession map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[string]ExportRecord),
		bySession: make(map[string][]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record ExportRecord) (ExportRecord, error) {
	fillDefaults(&record)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[record.ID] = record
	s.bySession[record.SessionID] = append(s.bySession[record.SessionID], record.ID)
	return record, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return ExportRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListBySession returns the newest exports first.
func (s *InMemoryStore) ListBySession(_ context.Context, sessionID string, limit int) ([]ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.bySession[sessionID]
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, len(ids))
	out := make([]ExportRecord, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.byID[ids[i]])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

func fillDefaults(record *ExportRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}
