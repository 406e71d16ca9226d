package mock

import (
	"context"
	"sync"

	"github.com/poiesic/leadhunt/ai"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields and records prompts.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete returns Reply.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// Reply is the canned response used when CompleteFunc is nil.
	Reply string

	mu        sync.Mutex
	callCount int
	prompts   []string
}

var _ ai.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a mock completer that returns reply for every prompt.
// Note: Returns concrete type to allow test assertions.
func NewMockCompleter(reply string) *MockCompleter {
	return &MockCompleter{Reply: reply}
}

// WithCompleteFunc sets custom behavior for Complete.
func (m *MockCompleter) WithCompleteFunc(fn func(ctx context.Context, prompt string) (string, error)) *MockCompleter {
	m.CompleteFunc = fn
	return m
}

// Complete records the prompt and returns the injected or canned reply.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Reply, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the most recent prompt, or "" if Complete was never called.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// Reset clears the call count, recorded prompts and custom functions.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.CompleteFunc = nil
}
