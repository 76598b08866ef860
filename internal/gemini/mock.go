package gemini

import (
	"context"
	"strings"
)

// MockAdapter provides deterministic local replies when no API key is
// configured. It keeps the conversation loop usable in dev and tests.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}
	return Response{Text: buildMockReply(req.Prompt)}, nil
}

func buildMockReply(prompt string) string {
	// Classification-style prompts get a label so the risk pipeline keeps
	// its contract even in mock mode.
	if strings.Contains(prompt, "Respond with exactly one word") {
		return "general"
	}

	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "I'm here with you. Take your time."
	}
	return "Thank you for sharing that with me. What you're feeling matters, " +
		"and it makes sense given what you've described. Could you tell me a " +
		"little more about when this started?"
}
