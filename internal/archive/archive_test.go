package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestInMemoryStoreSaveGetList(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	first, err := s.Save(ctx, ExportRecord{SessionID: "s1", Filename: "gemini_chat.txt", Content: "User: a"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("Save() did not fill defaults: %+v", first)
	}
	second, _ := s.Save(ctx, ExportRecord{SessionID: "s1", Content: "User: b"})
	_, _ = s.Save(ctx, ExportRecord{SessionID: "s2", Content: "User: c"})

	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Content != "User: a" {
		t.Fatalf("Get() content = %q", got.Content)
	}

	list, err := s.ListBySession(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("ListBySession() = %+v, want newest first", list)
	}

	limited, _ := s.ListBySession(ctx, "s1", 1)
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("ListBySession(limit 1) = %+v", limited)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryStoreListDefaultLimit(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	for i := 0; i < DefaultListLimit+5; i++ {
		if _, err := s.Save(ctx, ExportRecord{SessionID: "s1", Content: "User: x"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	list, err := s.ListBySession(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != DefaultListLimit {
		t.Fatalf("len(ListBySession(0)) = %d, want %d", len(list), DefaultListLimit)
	}
	if all, _ := s.ListBySession(ctx, "s1", 100); len(all) != DefaultListLimit+5 {
		t.Fatalf("len(ListBySession(100)) = %d, want %d", len(all), DefaultListLimit+5)
	}
}

func TestArchiverRedacts(t *testing.T) {
	ctx := context.Background()
	a := NewArchiver(NewInMemoryStore(), true)
	content := "User: mail sam@example.com\n\nAssistant: ok"

	rec, err := a.Record(ctx, ExportRecord{SessionID: "s1", Content: content})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !rec.PIIRedacted || strings.Contains(rec.Content, "sam@example.com") {
		t.Fatalf("Record() did not redact: %+v", rec)
	}

	stored, err := a.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Content != rec.Content {
		t.Fatalf("stored content = %q, want %q", stored.Content, rec.Content)
	}
}

func TestArchiverWithoutRedaction(t *testing.T) {
	a := NewArchiver(NewInMemoryStore(), false)
	content := "User: mail sam@example.com"
	rec, err := a.Record(context.Background(), ExportRecord{SessionID: "s1", Content: content})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.PIIRedacted || rec.Content != content {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestNewStoreDefaultsToMemory(t *testing.T) {
	s, kind, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()
	if kind != "memory" {
		t.Fatalf("NewStore() kind = %q, want memory", kind)
	}
}
