package chat

import "context"

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single transcript entry. Turns are never mutated after they are appended.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Credentials selects the account and model used for completions.
type Credentials struct {
	APIKey    string `json:"-"`
	ModelName string `json:"model_name"`
}

// FileReference is the opaque handle returned by an upload.
type FileReference struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mime_type"`
	DisplayName string `json:"display_name,omitempty"`
}

// Input is one element of a completion request: either a text prompt or a file reference.
type Input struct {
	Text string
	File *FileReference
}

// TextInput wraps a prompt as an Input.
func TextInput(text string) Input { return Input{Text: text} }

// FileInput wraps a file reference as an Input.
func FileInput(ref FileReference) Input { return Input{File: &ref} }

// IsFile reports whether the input carries a file reference.
func (in Input) IsFile() bool { return in.File != nil }

// Upload is a file handed to an Uploader.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Completer exchanges an ordered input list for a text completion.
type Completer interface {
	Complete(ctx context.Context, inputs []Input) (string, error)
}

// Client configures completers for a set of credentials.
type Client interface {
	Configure(ctx context.Context, creds Credentials) (Completer, error)
}

// Uploader stores a file with the AI service and returns a reference usable in completions.
type Uploader interface {
	Upload(ctx context.Context, apiKey string, upload Upload) (FileReference, error)
}

// Result describes the outcome of a Submit call.
type Result struct {
	Prompt  string
	Reply   string
	Inputs  []Input
	Skipped bool
}
