package narrative

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiLLM implements the LLM interface using the Gemini API.
type GeminiLLM struct {
	client *genai.Client
	config LLMConfig
}

// NewGeminiLLM creates a Gemini-backed LLM implementation.
func NewGeminiLLM(ctx context.Context, config LLMConfig) (*GeminiLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key (set GOOGLE_AI_STUDIO_API_KEY)", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &GeminiLLM{client: client, config: config}, nil
}

// Generate sends the prompt as a single user turn and returns the joined text parts.
func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	var gc *genai.GenerateContentConfig
	if g.config.Temperature > 0 || g.config.MaxTokens > 0 {
		gc = &genai.GenerateContentConfig{}
		if g.config.Temperature > 0 {
			gc.Temperature = genai.Ptr(g.config.Temperature)
		}
		if g.config.MaxTokens > 0 {
			gc.MaxOutputTokens = int32(g.config.MaxTokens)
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), gc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationBackend, err)
	}

	return resp.Text(), nil
}
