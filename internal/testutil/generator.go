package testutil

import (
	"context"
	"strings"
	"sync"
)

// MockGenerator provides deterministic LLM answers for testing.
// It implements rag.Generator: prompts are matched against registered
// substrings and the corresponding answer is returned.
//
// Thread-safe for concurrent use.
type MockGenerator struct {
	mu       sync.Mutex
	rules    []generatorRule
	fallback string
	err      error
	calls    []string
}

type generatorRule struct {
	pattern string // substring match in the prompt, lowercase
	answer  string
}

// NewMockGenerator creates a mock generator with the given fallback answer.
// The fallback is returned when no pattern matches.
func NewMockGenerator(fallback string) *MockGenerator {
	return &MockGenerator{fallback: fallback}
}

// AddAnswer registers a pattern-answer pair.
// When a prompt contains the pattern (case-insensitive), the answer is returned.
// Patterns are checked in registration order; first match wins.
func (m *MockGenerator) AddAnswer(pattern, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, generatorRule{
		pattern: strings.ToLower(pattern),
		answer:  answer,
	})
}

// Fail makes every subsequent Generate call return err.
// Use this to exercise fallback paths.
func (m *MockGenerator) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of all prompts received.
func (m *MockGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Generate implements rag.Generator.
func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, prompt)
	if m.err != nil {
		return "", m.err
	}

	lower := strings.ToLower(prompt)
	for _, rule := range m.rules {
		if strings.Contains(lower, rule.pattern) {
			return rule.answer, nil
		}
	}
	return m.fallback, nil
}
