package narrative

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on prompt content.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty and Empty is false, a response is derived from the prompt.
	Response string

	// Empty makes Generate return "" to simulate absent backend text.
	Empty bool

	// Error, if set, is returned by Generate instead of a response.
	Error error

	mu         sync.Mutex
	lastPrompt string
	calls      int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.lastPrompt = prompt
	m.calls++
	m.mu.Unlock()

	if m.Error != nil {
		return "", m.Error
	}
	if m.Empty {
		return "", nil
	}
	if m.Response != "" {
		return m.Response, nil
	}

	return generateMockResponse(prompt), nil
}

// LastPrompt returns the most recent prompt passed to Generate.
func (m *MockLLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Calls returns how many times Generate was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// generateMockResponse creates a predictable report from the prompt.
func generateMockResponse(prompt string) string {
	commits := countNumberedLines(prompt, "### Commits:\n")
	issues := countNumberedLines(prompt, "### Issues:\n")

	var b strings.Builder
	b.WriteString("### 1. 프로젝트 요약\n")
	fmt.Fprintf(&b, "This retrospective covers %d commits and %d issues.\n", commits, issues)
	return b.String()
}

// countNumberedLines counts "N. " lines after header, up to the next blank line.
func countNumberedLines(prompt, header string) int {
	idx := strings.Index(prompt, header)
	if idx < 0 {
		return 0
	}
	block := prompt[idx+len(header):]
	if split := strings.SplitN(block, "\n\n", 2); len(split) > 0 {
		block = split[0]
	}

	count := 0
	for _, line := range strings.Split(block, "\n") {
		if n := strings.Index(line, ". **"); n > 0 && isDigits(line[:n]) {
			count++
		}
	}
	return count
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
