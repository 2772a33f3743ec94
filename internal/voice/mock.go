package voice

import "context"

// MockTranscriber is a local fallback used when no speech backend is configured.
type MockTranscriber struct {
	Text string
}

func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{Text: "simulated voice input"}
}

func (m *MockTranscriber) Transcribe(ctx context.Context, pcm16le []byte, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(pcm16le) == 0 {
		return "", nil
	}
	return m.Text, nil
}
