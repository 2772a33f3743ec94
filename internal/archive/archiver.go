package archive

import (
	"context"
	"log/slog"

	"github.com/ent0n29/voicechat/internal/policy"
)

// Archiver records exports into a Store, optionally masking PII first.
// The caller's copy of the export is never altered.
type Archiver struct {
	store  Store
	redact bool
}

func NewArchiver(store Store, redact bool) *Archiver {
	return &Archiver{store: store, redact: redact}
}

func (a *Archiver) Record(ctx context.Context, record ExportRecord) (ExportRecord, error) {
	if a.redact {
		r := policy.RedactPII(record.Content)
		record.Content = r.Text
		record.PIIRedacted = r.Changed()
		if r.Changed() {
			slog.Debug("export redacted", "session_id", record.SessionID, "kinds", r.Kinds)
		}
	}
	return a.store.Save(ctx, record)
}

func (a *Archiver) Get(ctx context.Context, id string) (ExportRecord, error) {
	return a.store.Get(ctx, id)
}

func (a *Archiver) ListBySession(ctx context.Context, sessionID string, limit int) ([]ExportRecord, error) {
	return a.store.ListBySession(ctx, sessionID, limit)
}

func (a *Archiver) Close() error {
	return a.store.Close()
}
