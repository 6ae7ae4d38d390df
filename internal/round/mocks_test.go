package round

import (
	"context"
	"sync"
)

// --- MockLLMClient ---

type MockLLMClient struct {
	CompleteWithSystemFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	mu            sync.Mutex
	SystemPrompts []string
	UserPrompts   []string
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *MockLLMClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.SystemPrompts = append(m.SystemPrompts, systemPrompt)
	m.UserPrompts = append(m.UserPrompts, userPrompt)
	m.mu.Unlock()
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, systemPrompt, userPrompt)
	}
	return "ok", nil
}

func (m *MockLLMClient) Prompts() (system, user []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	system = append(system, m.SystemPrompts...)
	user = append(user, m.UserPrompts...)
	return system, user
}
