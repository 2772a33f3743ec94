package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ent0n29/voicechat/internal/chat"
)

// MockClient provides deterministic local replies when no AI backend is wanted.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Configure(_ context.Context, creds chat.Credentials) (chat.Completer, error) {
	return mockCompleter{model: creds.ModelName}, nil
}

func (c *MockClient) Upload(ctx context.Context, _ string, upload chat.Upload) (chat.FileReference, error) {
	if err := ctx.Err(); err != nil {
		return chat.FileReference{}, err
	}
	if len(upload.Data) == 0 {
		return chat.FileReference{}, fmt.Errorf("empty file")
	}
	id := uuid.NewString()
	return chat.FileReference{
		Name:        "files/" + id,
		URI:         "mock://files/" + id,
		MIMEType:    upload.MIMEType,
		DisplayName: upload.Name,
	}, nil
}

type mockCompleter struct {
	model string
}

func (m mockCompleter) Complete(ctx context.Context, inputs []chat.Input) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return buildMockReply(inputs), nil
}

func buildMockReply(inputs []chat.Input) string {
	var prompt string
	var files []string
	for _, in := range inputs {
		if in.IsFile() {
			name := in.File.DisplayName
			if name == "" {
				name = in.File.Name
			}
			files = append(files, name)
			continue
		}
		prompt = strings.TrimSpace(in.Text)
	}
	if len(files) == 0 {
		return fmt.Sprintf("You said: %s", prompt)
	}
	return fmt.Sprintf("You said: %s\nWith file: %s", prompt, strings.Join(files, ", "))
}
