package consensus

import "context"

// --- MockClient ---

type MockClient struct {
	CompleteFunc           func(ctx context.Context, prompt string) (string, error)
	CompleteWithSystemFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// LastUserPrompt records the prompt of the most recent call for
	// assertions about prompt construction.
	LastUserPrompt string
}

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.LastUserPrompt = prompt
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

func (m *MockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.LastUserPrompt = userPrompt
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, systemPrompt, userPrompt)
	}
	return "", nil
}
