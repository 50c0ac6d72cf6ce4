// Package config loads process-wide settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// LLM holds generative backend settings.
type LLM struct {
	Provider     string  `validate:"oneof=gemini openai"`
	Model        string  `validate:"required"`
	GeminiAPIKey string  `validate:"required_if=Provider gemini"`
	OpenAIAPIKey string  `validate:"required_if=Provider openai"`
	Temperature  float32 `validate:"gte=0,lte=2"`
	MaxTokens    int     `validate:"gte=0"`
}

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	// GitHubToken is optional; unauthenticated calls get a lower rate ceiling.
	GitHubToken string

	// GitHubAPIURL overrides the API base URL (GitHub Enterprise, test fakes).
	GitHubAPIURL string `validate:"omitempty,url"`

	LLM LLM

	// RecentDays bounds the history window used by the pipeline (0 = no bound).
	RecentDays int `validate:"gte=0"`

	// FetchCap bounds the records collected per stream by the pipeline.
	FetchCap int `validate:"gte=1,lte=2000"`

	HTTPAddr string `validate:"required"`
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:  ProviderGemini,
			Model:     DefaultModel(ProviderGemini),
			MaxTokens: 0,
		},
		RecentDays: 7,
		FetchCap:   100,
		HTTPAddr:   ":8080",
	}
}

// DefaultModel returns the model used for a provider when LLM_MODEL is unset.
func DefaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o"
	}
	return "gemini-2.5-flash"
}

// Load reads .env (if present) and the environment. It does not validate;
// callers that generate reports call Validate.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (Config, error) {
	cfg := Default()

	cfg.GitHubToken = env("GITHUB_TOKEN", "")
	cfg.GitHubAPIURL = env("GITHUB_API_URL", "")
	cfg.HTTPAddr = env("HTTP_ADDR", cfg.HTTPAddr)

	cfg.LLM.Provider = strings.ToLower(env("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = env("LLM_MODEL", DefaultModel(cfg.LLM.Provider))
	cfg.LLM.GeminiAPIKey = env("GOOGLE_AI_STUDIO_API_KEY", env("GEMINI_API_KEY", ""))
	cfg.LLM.OpenAIAPIKey = env("OPENAI_API_KEY", "")

	var err error
	if cfg.RecentDays, err = envInt("RECENT_DAYS", cfg.RecentDays); err != nil {
		return Config{}, err
	}
	if cfg.FetchCap, err = envInt("FETCH_CAP", cfg.FetchCap); err != nil {
		return Config{}, err
	}
	if cfg.LLM.MaxTokens, err = envInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens); err != nil {
		return Config{}, err
	}
	if s := env("LLM_TEMPERATURE", ""); s != "" {
		f, perr := strconv.ParseFloat(s, 32)
		if perr != nil {
			return Config{}, fmt.Errorf("%w: LLM_TEMPERATURE=%q: %v", ErrInvalidConfig, s, perr)
		}
		cfg.LLM.Temperature = float32(f)
	}

	return cfg, nil
}

// Validate checks the configuration needed for report generation.
// Fetch-only commands can skip it since they never touch the LLM settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q check", ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	s := env(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, s)
	}
	return v, nil
}
