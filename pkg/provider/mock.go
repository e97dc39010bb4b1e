package provider

import (
	"context"
	"sync"
)

// MockCall records one Complete invocation on a MockClient.
type MockCall struct {
	Model  string
	Prompt string
}

// MockClient replays scripted results for tests. Results are consumed in
// order; once exhausted, every call returns Default.
type MockClient struct {
	mu      sync.Mutex
	results []Result

	// Default is returned when no scripted results remain.
	Default Result

	// Calls records every invocation in order.
	Calls []MockCall
}

// NewMockClient creates a mock that replays the given results and then
// succeeds with a canned completion.
func NewMockClient(results ...Result) *MockClient {
	return &MockClient{
		results: results,
		Default: Result{Status: StatusOK, Output: "ok"},
	}
}

// Name identifies the mock provider.
func (m *MockClient) Name() string {
	return "mock"
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, model, prompt string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Model: model, Prompt: prompt})
	if len(m.results) > 0 {
		r := m.results[0]
		m.results = m.results[1:]
		return r
	}
	return m.Default
}
