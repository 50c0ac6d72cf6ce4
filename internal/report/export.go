// Package report exports pipeline results as JSON or markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/orchestrator"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "md"
)

// RetroExport is the serialized form of a pipeline run
type RetroExport struct {
	Owner       string            `json:"owner"`
	Repo        string            `json:"repo"`
	Since       *time.Time        `json:"since,omitempty"`
	State       string            `json:"state"`
	CommitCount int               `json:"commit_count"`
	IssueCount  int               `json:"issue_count"`
	Authors     []string          `json:"authors"`
	Content     *string           `json:"content"`
	Model       string            `json:"model,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	Commits     []gh.CommitRecord `json:"commits"`
	Issues      []gh.IssueRecord  `json:"issues"`
}

// FormatFromPath picks the export format from a file extension.
func FormatFromPath(path string) (ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q (supported: .json, .md)", filepath.Ext(path))
	}
}

// Export writes res in the given format
func Export(res *orchestrator.Result, format string, writer io.Writer) error {
	if res == nil {
		return fmt.Errorf("nothing to export")
	}

	exp := Build(res)

	switch ExportFormat(strings.ToLower(format)) {
	case FormatJSON:
		return exportJSON(exp, writer)
	case FormatMarkdown, "markdown":
		return exportMarkdown(exp, writer)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, md)", format)
	}
}

// Build converts a pipeline result to its export form
func Build(res *orchestrator.Result) RetroExport {
	exp := RetroExport{
		Owner:       res.Ref.Owner,
		Repo:        res.Ref.Repo,
		State:       string(res.State),
		CommitCount: len(res.Commits),
		IssueCount:  len(res.Issues),
		Authors:     Authors(res.Commits),
		Commits:     res.Commits,
		Issues:      res.Issues,
	}
	if exp.Commits == nil {
		exp.Commits = []gh.CommitRecord{}
	}
	if exp.Issues == nil {
		exp.Issues = []gh.IssueRecord{}
	}
	if !res.Since.IsZero() {
		since := res.Since
		exp.Since = &since
	}
	if res.Report != nil {
		content := res.Report.Content
		exp.Content = &content
		exp.Model = res.Report.Model
	}

	errs := map[string]string{}
	if res.CommitsErr != nil {
		errs["commits"] = res.CommitsErr.Error()
	}
	if res.IssuesErr != nil {
		errs["issues"] = res.IssuesErr.Error()
	}
	if res.GenerationErr != nil {
		errs["generation"] = res.GenerationErr.Error()
	}
	if len(errs) > 0 {
		exp.Errors = errs
	}

	return exp
}

// Authors returns the sorted distinct commit author names
func Authors(commits []gh.CommitRecord) []string {
	seen := make(map[string]struct{})
	authors := []string{}

	for _, c := range commits {
		if c.AuthorName == nil {
			continue
		}
		name := strings.TrimSpace(*c.AuthorName)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		authors = append(authors, name)
	}

	sort.Strings(authors)
	return authors
}

func exportJSON(exp RetroExport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exp)
}

func exportMarkdown(exp RetroExport, writer io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s/%s retrospective\n\n", exp.Owner, exp.Repo)
	if exp.Since != nil {
		fmt.Fprintf(&b, "- **Since:** %s\n", exp.Since.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "- **Commits:** %d\n", exp.CommitCount)
	fmt.Fprintf(&b, "- **Issues:** %d\n", exp.IssueCount)
	if len(exp.Authors) > 0 {
		fmt.Fprintf(&b, "- **Authors:** %s\n", strings.Join(exp.Authors, ", "))
	}
	b.WriteString("\n")

	if exp.Content != nil {
		b.WriteString(strings.TrimRight(*exp.Content, "\n"))
		b.WriteString("\n\n")
	} else {
		b.WriteString("_No report was generated._\n\n")
	}

	if len(exp.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, stage := range []string{"commits", "issues", "generation"} {
			if msg, ok := exp.Errors[stage]; ok {
				fmt.Fprintf(&b, "- **%s:** %s\n", stage, msg)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Commits\n\n")
	if len(exp.Commits) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, c := range exp.Commits {
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		fmt.Fprintf(&b, "- [`%s`](%s) %s\n", sha, c.URL, firstLine(c.Message))
	}

	b.WriteString("\n## Issues\n\n")
	if len(exp.Issues) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, is := range exp.Issues {
		fmt.Fprintf(&b, "- [#%d](%s) %s (%s)\n", is.Number, is.URL, is.Title, is.State)
	}

	_, err := io.WriteString(writer, b.String())
	return err
}

func firstLine(s *string) string {
	if s == nil || *s == "" {
		return "No message"
	}
	line, _, _ := strings.Cut(*s, "\n")
	return line
}
