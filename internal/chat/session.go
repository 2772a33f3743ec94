package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Session owns one conversation: its credentials, optional attachment and transcript.
//
// Submit calls are serialized: a second caller waits until the in-flight
// completion returns. Reads (Transcript, Export) never wait on a completion.
type Session struct {
	client Client

	turnMu sync.Mutex

	mu         sync.RWMutex
	creds      Credentials
	completer  Completer
	file       *FileReference
	transcript []Turn
}

func NewSession(client Client) *Session {
	return &Session{client: client}
}

// Configure validates creds with the client and replaces the active completer.
// On failure the session is left unconfigured.
func (s *Session) Configure(ctx context.Context, creds Credentials) error {
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	creds.ModelName = strings.TrimSpace(creds.ModelName)
	if creds.APIKey == "" {
		s.resetCompleter()
		return fmt.Errorf("%w: api key is empty", ErrConfiguration)
	}
	if creds.ModelName == "" {
		s.resetCompleter()
		return fmt.Errorf("%w: model is not selected", ErrConfiguration)
	}
	if s.client == nil {
		s.resetCompleter()
		return fmt.Errorf("%w: no ai client", ErrConfiguration)
	}

	completer, err := s.client.Configure(ctx, creds)
	if err != nil {
		s.resetCompleter()
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	s.mu.Lock()
	s.creds = creds
	s.completer = completer
	s.mu.Unlock()
	return nil
}

func (s *Session) resetCompleter() {
	s.mu.Lock()
	s.creds = Credentials{}
	s.completer = nil
	s.mu.Unlock()
}

// Configured reports whether Submit may call the AI client.
func (s *Session) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completer != nil
}

// Model returns the selected model name, empty when unconfigured.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.ModelName
}

// APIKey returns the configured key, needed by uploads that run outside Submit.
func (s *Session) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.APIKey
}

// Submit sends prompt to the AI client and records the exchange.
//
// A whitespace-only prompt is a no-op. The user turn is appended before the
// completion call and stays in the transcript when the call fails.
func (s *Session) Submit(ctx context.Context, prompt string) (Result, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.Lock()
	completer := s.completer
	if completer == nil {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("%w: set an api key and model first", ErrConfiguration)
	}
	if strings.TrimSpace(prompt) == "" {
		s.mu.Unlock()
		return Result{Skipped: true}, nil
	}
	s.transcript = append(s.transcript, Turn{Role: RoleUser, Text: prompt})
	inputs := buildInputs(s.file, prompt)
	s.mu.Unlock()

	reply, err := completer.Complete(ctx, inputs)
	if err != nil {
		return Result{Prompt: prompt, Inputs: inputs}, fmt.Errorf("%w: %w", ErrService, err)
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, Turn{Role: RoleAssistant, Text: reply})
	s.mu.Unlock()

	return Result{Prompt: prompt, Reply: reply, Inputs: inputs}, nil
}

// file reference, when attached, always comes first.
func buildInputs(file *FileReference, prompt string) []Input {
	if file == nil {
		return []Input{TextInput(prompt)}
	}
	return []Input{FileInput(*file), TextInput(prompt)}
}

// AttachFile replaces the current attachment. Turns already sent are not affected.
func (s *Session) AttachFile(ref FileReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = &ref
}

// DetachFile drops the current attachment, if any.
func (s *Session) DetachFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = nil
}

// File returns the current attachment.
func (s *Session) File() (FileReference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.file == nil {
		return FileReference{}, false
	}
	return *s.file, true
}

// AttachUpload uploads a file and attaches the resulting reference.
// When the upload fails the session continues without an attachment.
func (s *Session) AttachUpload(ctx context.Context, uploader Uploader, upload Upload) (FileReference, error) {
	if uploader == nil {
		s.DetachFile()
		return FileReference{}, fmt.Errorf("%w: uploads are not supported", ErrUpload)
	}
	apiKey := s.APIKey()
	if apiKey == "" {
		return FileReference{}, fmt.Errorf("%w: set an api key and model first", ErrConfiguration)
	}

	ref, err := uploader.Upload(ctx, apiKey, upload)
	if err != nil {
		s.DetachFile()
		return FileReference{}, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	if ref.DisplayName == "" {
		ref.DisplayName = upload.Name
	}
	s.AttachFile(ref)
	return ref, nil
}

// Transcript returns a copy of the turns in insertion order.
func (s *Session) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Len returns the number of turns recorded so far.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcript)
}

// Export renders the transcript; see ExportTurns.
func (s *Session) Export() string {
	return ExportTurns(s.Transcript())
}
