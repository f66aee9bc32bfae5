// internal/autofill/mocks_test.go
package autofill

import (
	"context"
	"sync"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// mockGateway is a hand-rolled schemas.Gateway double that records every
// prompt and answers via a per-test function.
type mockGateway struct {
	mu      sync.Mutex
	prompts []string
	// generateFunc can be customized per test to simulate different outcomes.
	generateFunc func(prompt string) (string, error)
	configured   bool
}

func newMockGateway() *mockGateway {
	return &mockGateway{configured: true}
}

func (m *mockGateway) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.generateFunc != nil {
		return m.generateFunc(prompt)
	}
	return "", nil
}

func (m *mockGateway) GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
	text, err := m.Generate(ctx, prompt)
	if err == nil && text != "" {
		onToken(text)
	}
	return text, err
}

func (m *mockGateway) IsConfigured() bool { return m.configured }

func (m *mockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockGateway) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

var _ schemas.Gateway = (*mockGateway)(nil)
