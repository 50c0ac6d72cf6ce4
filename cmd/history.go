package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/robinyoon-dev/repo-spect/internal/api"
	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

// listFlags are shared by the commits and issues commands
type listFlags struct {
	page    int
	perPage int
	all     bool
	cap     int
	since   string
	until   string
	branch  string
	state   string
	sort    string
	dir     string
}

var (
	commitFlags listFlags
	issueFlags  listFlags
)

var commitsCmd = &cobra.Command{
	Use:   "commits [repository-url]",
	Short: "List commits of a GitHub repository as JSON",
	Long: `List commits of a GitHub repository.

Without --all a single page is fetched. With --all pages are followed until
the history ends or --cap records were collected (max 2000).

Examples:
  repo-spect commits https://github.com/user/repo --per-page 50
  repo-spect commits https://github.com/user/repo --all --cap 300 --since 2024-06-01T00:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runCommits,
}

var issuesCmd = &cobra.Command{
	Use:   "issues [repository-url]",
	Short: "List issues of a GitHub repository as JSON",
	Long: `List issues of a GitHub repository.

Pull requests returned by the issues endpoint are kept as they are.

Examples:
  repo-spect issues https://github.com/user/repo --state all
  repo-spect issues https://github.com/user/repo --all --sort updated --direction asc`,
	Args: cobra.ExactArgs(1),
	RunE: runIssues,
}

func init() {
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(issuesCmd)

	addListFlags(commitsCmd, &commitFlags)
	commitsCmd.Flags().StringVar(&commitFlags.branch, "branch", "", "Branch name or commit SHA to list from")
	commitsCmd.Flags().StringVar(&commitFlags.until, "until", "", "Only commits before this RFC3339 time")

	addListFlags(issuesCmd, &issueFlags)
	issuesCmd.Flags().StringVar(&issueFlags.state, "state", "", "Issue state: open, closed or all")
	issuesCmd.Flags().StringVar(&issueFlags.sort, "sort", "", "Sort by created, updated or comments")
	issuesCmd.Flags().StringVar(&issueFlags.dir, "direction", "", "Sort direction: asc or desc")
}

func addListFlags(c *cobra.Command, f *listFlags) {
	c.Flags().IntVar(&f.page, "page", 1, "Page number in single-page mode")
	c.Flags().IntVar(&f.perPage, "per-page", gh.DefaultPerPage, "Records per page (max 100)")
	c.Flags().BoolVar(&f.all, "all", false, "Follow pages until the history ends or the cap is reached")
	c.Flags().IntVar(&f.cap, "cap", gh.DefaultCap, "Max records in --all mode (max 2000)")
	c.Flags().StringVar(&f.since, "since", "", "Only records after this RFC3339 time")
}

func runCommits(cmd *cobra.Command, args []string) error {
	ref, source, err := listSetup(args[0])
	if err != nil {
		return err
	}

	filter := gh.CommitFilter{Branch: commitFlags.branch}
	if filter.Since, err = flagTime("since", commitFlags.since); err != nil {
		return err
	}
	if filter.Until, err = flagTime("until", commitFlags.until); err != nil {
		return err
	}

	res, err := source.Commits(cmd.Context(), ref, gh.CommitQuery{
		Filter:  filter,
		Page:    commitFlags.page,
		PerPage: commitFlags.perPage,
		All:     commitFlags.all,
		Cap:     commitFlags.cap,
	})
	if err != nil {
		return err
	}
	return printJSON(api.CommitsBody(res))
}

func runIssues(cmd *cobra.Command, args []string) error {
	ref, source, err := listSetup(args[0])
	if err != nil {
		return err
	}

	filter := gh.IssueFilter{
		State:     issueFlags.state,
		Sort:      issueFlags.sort,
		Direction: issueFlags.dir,
	}
	if filter.Since, err = flagTime("since", issueFlags.since); err != nil {
		return err
	}

	res, err := source.Issues(cmd.Context(), ref, gh.IssueQuery{
		Filter:  filter,
		Page:    issueFlags.page,
		PerPage: issueFlags.perPage,
		All:     issueFlags.all,
		Cap:     issueFlags.cap,
	})
	if err != nil {
		return err
	}
	return printJSON(api.IssuesBody(res))
}

// listSetup parses the repository and builds a GitHub client; no LLM config is needed
func listSetup(input string) (repository.Reference, *gh.Client, error) {
	ref, err := repository.Parse(input)
	if err != nil {
		return repository.Reference{}, nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return repository.Reference{}, nil, err
	}
	source, err := newSource(cfg)
	if err != nil {
		return repository.Reference{}, nil, err
	}
	return ref, source, nil
}

func flagTime(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: want RFC3339", name, value)
	}
	return t, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
