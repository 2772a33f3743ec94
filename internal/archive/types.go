package archive

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("export not found")

// DefaultListLimit applies when ListBySession is called with limit <= 0.
const DefaultListLimit = 20

// ExportRecord is one exported transcript artifact.
type ExportRecord struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	ModelName   string    `json:"model_name,omitempty"`
	Turns       int       `json:"turns"`
	Content     string    `json:"content"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists exported transcripts. The live transcript is never stored.
// The in-memory store keeps every export until the process exits.
type Store interface {
	Save(ctx context.Context, record ExportRecord) (ExportRecord, error)
	Get(ctx context.Context, id string) (ExportRecord, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]ExportRecord, error)
	Close() error
}
