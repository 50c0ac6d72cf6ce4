package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/narrative"
	"github.com/robinyoon-dev/repo-spect/internal/orchestrator"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

func strPtr(s string) *string { return &s }

func createTestResult() *orchestrator.Result {
	return &orchestrator.Result{
		Ref:   repository.Reference{Owner: "owner", Repo: "repo"},
		Since: time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
		State: orchestrator.StateDone,
		Commits: []gh.CommitRecord{
			{SHA: "abc123def456", URL: "https://github.com/owner/repo/commit/abc123def456", Message: strPtr("Add login\n\nlong body"), AuthorName: strPtr("Bob")},
			{SHA: "fff000", URL: "https://github.com/owner/repo/commit/fff000", AuthorName: strPtr("Alice")},
			{SHA: "eee111", URL: "https://github.com/owner/repo/commit/eee111", AuthorName: strPtr("Bob")},
		},
		Issues: []gh.IssueRecord{
			{Number: 7, Title: "Crash", State: "open", URL: "https://github.com/owner/repo/issues/7", Labels: []gh.Label{}, Assignees: []gh.Assignee{}},
		},
		Report: &narrative.Report{Content: "### 1. 프로젝트 요약\n요약", Model: "gemini-2.5-flash"},
	}
}

func TestExport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(createTestResult(), "json", &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var exp RetroExport
	if err := json.Unmarshal(buf.Bytes(), &exp); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if exp.Owner != "owner" || exp.Repo != "repo" {
		t.Errorf("unexpected ref: %s/%s", exp.Owner, exp.Repo)
	}
	if exp.CommitCount != 3 || exp.IssueCount != 1 {
		t.Errorf("counts = %d/%d", exp.CommitCount, exp.IssueCount)
	}
	if len(exp.Authors) != 2 || exp.Authors[0] != "Alice" || exp.Authors[1] != "Bob" {
		t.Errorf("authors = %v", exp.Authors)
	}
	if exp.Content == nil || !strings.HasPrefix(*exp.Content, "### 1.") {
		t.Errorf("content = %v", exp.Content)
	}
	if exp.State != "done" {
		t.Errorf("state = %q", exp.State)
	}
	if exp.Errors != nil {
		t.Errorf("expected no errors, got %v", exp.Errors)
	}
}

func TestExport_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(createTestResult(), "MD", &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# owner/repo retrospective",
		"- **Since:** 2024-06-08",
		"- **Authors:** Alice, Bob",
		"### 1. 프로젝트 요약",
		"- [`abc123d`](https://github.com/owner/repo/commit/abc123def456) Add login\n",
		"- [`fff000`](https://github.com/owner/repo/commit/fff000) No message",
		"- [#7](https://github.com/owner/repo/issues/7) Crash (open)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestExport_NoReportWithErrors(t *testing.T) {
	res := &orchestrator.Result{
		Ref:        repository.Reference{Owner: "owner", Repo: "repo"},
		State:      orchestrator.StatePartialFailure,
		CommitsErr: errors.New("commits: not found"),
	}

	var buf bytes.Buffer
	if err := Export(res, "json", &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"content": null`) {
		t.Errorf("missing report should export as null content:\n%s", out)
	}
	if !strings.Contains(out, `"commits": "commits: not found"`) {
		t.Errorf("commit error not exported:\n%s", out)
	}
	if !strings.Contains(out, `"commits": []`) || !strings.Contains(out, `"issues": []`) {
		t.Errorf("empty streams should export as []:\n%s", out)
	}

	buf.Reset()
	if err := Export(res, "md", &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(buf.String(), "_No report was generated._") || !strings.Contains(buf.String(), "## Errors") {
		t.Errorf("unexpected markdown:\n%s", buf.String())
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Export(createTestResult(), "xml", &buf)
	if err == nil {
		t.Fatal("Expected error for unsupported format, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("Expected 'unsupported export format' error, got: %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    ExportFormat
		wantErr bool
	}{
		{"retro.json", FormatJSON, false},
		{"out/RETRO.MD", FormatMarkdown, false},
		{"notes.markdown", FormatMarkdown, false},
		{"retro.txt", "", true},
		{"retro", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
