package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/logger"
)

// FallbackContent replaces empty backend output.
const FallbackContent = "Failed to generate content"

var (
	ErrGenerationFailed = errors.New("retrospective generation failed")
)

// Report is a generated retrospective.
type Report struct {
	// Content is the generated markdown, or FallbackContent
	Content string `json:"content"`

	// Model is the LLM model used to generate this report
	Model string `json:"model,omitempty"`

	// GeneratedAt is when this report was created
	GeneratedAt time.Time `json:"generatedAt"`

	// Fallback is set when Content is FallbackContent
	Fallback bool `json:"-"`
}

// Generator produces retrospectives using an LLM.
// It makes exactly one backend call per report; there are no retries.
type Generator struct {
	llm    LLM
	config LLMConfig
}

// NewGenerator creates a generator with the given LLM implementation.
func NewGenerator(llm LLM, config LLMConfig) *Generator {
	return &Generator{
		llm:    llm,
		config: config,
	}
}

// Generate invokes the LLM with an already-assembled prompt.
// Backend failures wrap ErrGenerationBackend.
func (g *Generator) Generate(ctx context.Context, prompt string) (*Report, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrGenerationFailed)
	}

	log := logger.C(ctx).With().Str("component", "narrative").Str("model", g.config.Model).Logger()
	start := time.Now()

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("generation failed")
		if !errors.Is(err, ErrGenerationBackend) {
			err = fmt.Errorf("%w: %w", ErrGenerationBackend, err)
		}
		return nil, err
	}

	report := &Report{
		Content:     text,
		Model:       g.config.Model,
		GeneratedAt: time.Now(),
	}
	if strings.TrimSpace(text) == "" {
		report.Content = FallbackContent
		report.Fallback = true
		log.Warn().Msg("backend returned no text, using fallback content")
	}

	log.Info().
		Int("prompt_bytes", len(prompt)).
		Int("content_bytes", len(report.Content)).
		Dur("elapsed", time.Since(start)).
		Msg("retrospective generated")
	return report, nil
}

// Retrospective builds the prompt from commits and issues and generates the report.
func (g *Generator) Retrospective(ctx context.Context, commits []gh.CommitRecord, issues []gh.IssueRecord) (*Report, error) {
	return g.Generate(ctx, BuildPrompt(commits, issues))
}
