package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robinyoon-dev/repo-spect/internal/config"
	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/logger"
	"github.com/robinyoon-dev/repo-spect/internal/narrative"
	"github.com/robinyoon-dev/repo-spect/internal/orchestrator"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "repo-spect",
	Short: "Repo-spect - turn repository history into a retrospective",
	Long: `Repo-spect collects a GitHub repository's recent commits and issues
and asks a generative model to write a structured retrospective in Korean.

It can also list commits and issues directly, or serve the same operations
over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		opt := logger.FromEnv()
		if logLevel != "" {
			opt.Level = logLevel
		}
		if logFormat != "" {
			opt.Format = logFormat
		}
		logger.Init(opt)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, off (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json (default $LOG_FORMAT or console)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env (if present) and the environment
func loadConfig() (config.Config, error) {
	return config.Load()
}

func newSource(cfg config.Config) (*gh.Client, error) {
	return gh.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL)
}

// newPipeline validates cfg and wires the GitHub client, LLM backend and pipeline
func newPipeline(ctx context.Context, cfg config.Config) (*orchestrator.Pipeline, *gh.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	source, err := newSource(cfg)
	if err != nil {
		return nil, nil, err
	}

	llmCfg := narrative.ConfigFrom(cfg.LLM)
	llm, err := narrative.NewLLM(ctx, llmCfg)
	if err != nil {
		return nil, nil, err
	}

	pipeline := orchestrator.NewPipeline(source, narrative.NewGenerator(llm, llmCfg), orchestrator.Options{
		RecentDays: cfg.RecentDays,
		Cap:        cfg.FetchCap,
	})
	return pipeline, source, nil
}
