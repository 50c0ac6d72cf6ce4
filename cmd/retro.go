package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/robinyoon-dev/repo-spect/internal/config"
	"github.com/robinyoon-dev/repo-spect/internal/orchestrator"
	"github.com/robinyoon-dev/repo-spect/internal/report"
)

var (
	exportFile  string
	retroTime   time.Duration
	retroDays   int
	retroCap    int
	llmProvider string
	llmModel    string
)

var retroCmd = &cobra.Command{
	Use:   "retro [repository-url]",
	Short: "Generate a retrospective for a GitHub repository",
	Long: `Fetch recent commits and issues of a GitHub repository and generate a
retrospective report.

The report is only generated when both commits and issues were found in the
window. A failure fetching one stream is reported without hiding the other.

Required environment variables (depending on --provider):
  GOOGLE_AI_STUDIO_API_KEY  - Gemini API key (provider gemini, default)
  OPENAI_API_KEY            - OpenAI API key (provider openai)
Optional:
  GITHUB_TOKEN              - raises the GitHub rate limit

Examples:
  repo-spect retro https://github.com/user/repo
  repo-spect retro https://github.com/user/repo --days 14 --cap 300
  repo-spect retro https://github.com/user/repo --export retro.md`,
	Args: cobra.ExactArgs(1),
	RunE: runRetro,
}

func init() {
	rootCmd.AddCommand(retroCmd)
	retroCmd.Flags().StringVar(&exportFile, "export", "", "Export the result to a .json or .md file")
	retroCmd.Flags().DurationVar(&retroTime, "timeout", 2*time.Minute, "Overall timeout for fetching and generation")
	retroCmd.Flags().IntVar(&retroDays, "days", -1, "History window in days, 0 for all history (default $RECENT_DAYS or 7)")
	retroCmd.Flags().IntVar(&retroCap, "cap", 0, "Max records per stream (default $FETCH_CAP or 100)")
	retroCmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider: gemini or openai (default $LLM_PROVIDER)")
	retroCmd.Flags().StringVar(&llmModel, "model", "", "LLM model (default $LLM_MODEL or the provider default)")
}

func runRetro(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRetroFlags(&cfg)

	// Fail on a bad export path before spending any API calls
	if exportFile != "" {
		if _, err := report.FormatFromPath(exportFile); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), retroTime)
	defer cancel()

	pipeline, _, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("retrospective failed: %w", err)
	}

	if exportFile != "" {
		if err := handleExport(res, exportFile); err != nil {
			return err
		}
	}

	printRetro(res)
	return nil
}

func applyRetroFlags(cfg *config.Config) {
	if retroDays >= 0 {
		cfg.RecentDays = retroDays
	}
	if retroCap > 0 {
		cfg.FetchCap = retroCap
	}
	if llmProvider != "" {
		cfg.LLM.Provider = strings.ToLower(llmProvider)
		if llmModel == "" && os.Getenv("LLM_MODEL") == "" {
			cfg.LLM.Model = config.DefaultModel(cfg.LLM.Provider)
		}
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
}

func handleExport(res *orchestrator.Result, filename string) error {
	format, err := report.FormatFromPath(filename)
	if err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := report.Export(res, string(format), file); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✓ Exported %s/%s retrospective to %s\n", res.Ref.Owner, res.Ref.Repo, filename)
	return nil
}

func printRetro(res *orchestrator.Result) {
	var (
		headerColor  = lipgloss.Color("#F780FF")
		labelColor   = lipgloss.Color("#BD93F9")
		numberColor  = lipgloss.Color("#FF79C6")
		errorColor   = lipgloss.Color("#FF5555")
		borderColor  = lipgloss.Color("#6272A4")
		summaryColor = lipgloss.Color("#8BE9FD")
	)

	headerStyle := lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(labelColor).Width(12)
	numberStyle := lipgloss.NewStyle().Foreground(numberColor)
	errorStyle := lipgloss.NewStyle().Foreground(errorColor)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	summaryStyle := lipgloss.NewStyle().Foreground(summaryColor).Italic(true)

	fmt.Println(headerStyle.Render(fmt.Sprintf("%s/%s", res.Ref.Owner, res.Ref.Repo)))
	fmt.Println(borderStyle.Render(strings.Repeat("─", 48)))

	if !res.Since.IsZero() {
		fmt.Println(labelStyle.Render("Since") + res.Since.Format("Jan 02, 2006"))
	}
	fmt.Println(labelStyle.Render("Commits") + streamLine(len(res.Commits), res.CommitsErr, numberStyle, errorStyle))
	fmt.Println(labelStyle.Render("Issues") + streamLine(len(res.Issues), res.IssuesErr, numberStyle, errorStyle))
	if authors := report.Authors(res.Commits); len(authors) > 0 {
		fmt.Println(labelStyle.Render("Authors") + strings.Join(authors, ", "))
	}
	fmt.Println(borderStyle.Render(strings.Repeat("─", 48)))
	fmt.Println()

	switch {
	case res.Report != nil:
		fmt.Println(res.Report.Content)
	case res.GenerationErr != nil:
		fmt.Println(errorStyle.Render("Generation failed: " + res.GenerationErr.Error()))
	default:
		fmt.Println(summaryStyle.Render("No report generated: a retrospective needs at least one commit and one issue."))
	}
}

func streamLine(n int, err error, num, bad lipgloss.Style) string {
	if err != nil {
		return bad.Render("failed: " + err.Error())
	}
	return num.Render(fmt.Sprintf("%d", n))
}
