// Package narrative turns repository history into a retrospective report.
// It renders the prompt and sends it to a provider-agnostic LLM, with
// Gemini and OpenAI backends plus a deterministic mock for tests.
package narrative

import (
	"context"
	"errors"
	"fmt"

	"github.com/robinyoon-dev/repo-spect/internal/config"
)

var (
	ErrGenerationBackend = errors.New("generation backend request failed")
	ErrInvalidConfig     = errors.New("invalid LLM configuration")
)

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text from a prompt in a single call.
	// An empty string with a nil error means the backend sent no text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Provider selects the backend ("gemini" or "openai")
	Provider string

	// Model specifies the model identifier (e.g., "gemini-2.5-flash", "gpt-4o")
	Model string

	// Temperature controls randomness (0 = provider default)
	Temperature float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string

	// BaseURL overrides the provider endpoint; empty uses the public API
	BaseURL string
}

// DefaultLLMConfig returns sensible defaults for retrospective generation.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: config.ProviderGemini,
		Model:    config.DefaultModel(config.ProviderGemini),
	}
}

// ConfigFrom picks the key for the selected provider out of the process config.
func ConfigFrom(c config.LLM) LLMConfig {
	cfg := LLMConfig{
		Provider:    c.Provider,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	switch c.Provider {
	case config.ProviderOpenAI:
		cfg.APIKey = c.OpenAIAPIKey
	default:
		cfg.APIKey = c.GeminiAPIKey
	}
	return cfg
}

// NewLLM builds the backend named by cfg.Provider.
func NewLLM(ctx context.Context, cfg LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiLLM(ctx, cfg)
	case config.ProviderOpenAI:
		return NewOpenAILLM(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
