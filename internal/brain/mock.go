package brain

import (
	"context"
	"strings"
)

// MockAdapter is the keyless fallback brain. It answers deterministically so
// the UI stays usable without credentials.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Generate(_ context.Context, req PromptRequest) (string, error) {
	last := lastUserLine(req.Transcript)
	if last == "" {
		return "Hello! I'm running without a language model configured.", nil
	}
	return "You said: " + last + ". Configure a language model API key for real replies.", nil
}

func lastUserLine(transcript string) string {
	lines := strings.Split(transcript, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if rest, ok := strings.CutPrefix(lines[i], "User: "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
