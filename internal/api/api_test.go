package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/narrative"
	"github.com/robinyoon-dev/repo-spect/internal/orchestrator"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

type fakeSource struct {
	commitQuery gh.CommitQuery
	issueQuery  gh.IssueQuery
	err         error
}

func (f *fakeSource) Commits(_ context.Context, ref repository.Reference, q gh.CommitQuery) (*gh.CommitResult, error) {
	f.commitQuery = q
	if f.err != nil {
		return nil, f.err
	}
	res := &gh.CommitResult{Ref: ref, Commits: []gh.CommitRecord{{SHA: "abc"}}}
	if q.All {
		res.Mode = gh.ModeAll
		res.Cursor = gh.Cursor{Page: 1, PerPage: gh.MaxPerPage, Cap: gh.ClampCap(q.Cap), Collected: 1}
	} else {
		res.Mode = gh.ModePage
		res.Cursor = gh.Cursor{Page: gh.ClampPage(q.Page), PerPage: gh.ClampPerPage(q.PerPage), Collected: 1}
		res.Rate = gh.Rate{Remaining: "59", Limit: "60"}
	}
	return res, nil
}

func (f *fakeSource) Issues(_ context.Context, ref repository.Reference, q gh.IssueQuery) (*gh.IssueResult, error) {
	f.issueQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return &gh.IssueResult{
		Ref:    ref,
		Mode:   gh.ModePage,
		Cursor: gh.Cursor{Page: gh.ClampPage(q.Page), PerPage: gh.ClampPerPage(q.PerPage), Collected: 1},
		Issues: []gh.IssueRecord{{Number: 1, Title: "bug", State: "open", Labels: []gh.Label{}, Assignees: []gh.Assignee{}}},
	}, nil
}

type fakeRunner struct {
	res *orchestrator.Result
	err error
	url string
}

func (f *fakeRunner) Run(_ context.Context, repoURL string) (*orchestrator.Result, error) {
	f.url = repoURL
	return f.res, f.err
}

func serve(t *testing.T, src *fakeSource, run *fakeRunner, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if src == nil {
		src = &fakeSource{}
	}
	if run == nil {
		run = &fakeRunner{}
	}

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	NewRouter(src, run, Options{}).ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, out
}

func TestCommits_SinglePage(t *testing.T) {
	src := &fakeSource{}
	rec, out := serve(t, src, nil, http.MethodGet,
		"/api/commits?url=https://github.com/owner/repo&page=2&per_page=500&branch=dev&since=2024-01-01T00:00:00Z", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out["owner"] != "owner" || out["repo"] != "repo" {
		t.Errorf("owner/repo = %v/%v", out["owner"], out["repo"])
	}
	if out["page"] != float64(2) || out["per_page"] != float64(100) || out["count"] != float64(1) {
		t.Errorf("unexpected paging fields: %v", out)
	}
	rate, _ := out["rate"].(map[string]any)
	if rate["remaining"] != "59" || rate["limit"] != "60" {
		t.Errorf("rate = %v", out["rate"])
	}
	if src.commitQuery.Filter.Branch != "dev" || src.commitQuery.Filter.Since.IsZero() {
		t.Errorf("filters not forwarded: %+v", src.commitQuery.Filter)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Error("response should carry a request id")
	}
}

func TestCommits_AllMode(t *testing.T) {
	src := &fakeSource{}
	rec, out := serve(t, src, nil, http.MethodGet, "/api/commits?url=https://github.com/owner/repo&all=TRUE&cap=5000", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["mode"] != "all" || out["cap"] != float64(gh.MaxCap) {
		t.Errorf("unexpected all-mode body: %v", out)
	}
	if _, ok := out["rate"]; ok {
		t.Error("all mode should not report rate")
	}
	if !src.commitQuery.All || src.commitQuery.Cap != 5000 {
		t.Errorf("query = %+v", src.commitQuery)
	}
}

func TestIssues_Filters(t *testing.T) {
	src := &fakeSource{}
	rec, out := serve(t, src, nil, http.MethodGet,
		"/api/issues?url=https://github.com/owner/repo&state=closed&sort=updated&direction=asc", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	f := src.issueQuery.Filter
	if f.State != "closed" || f.Sort != "updated" || f.Direction != "asc" {
		t.Errorf("filters not forwarded: %+v", f)
	}
	issues, _ := out["issues"].([]any)
	if len(issues) != 1 {
		t.Errorf("issues = %v", out["issues"])
	}
}

func TestList_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"missing url", "/api/commits", "`url` query is required"},
		{"bad host", "/api/commits?url=https://gitlab.com/a/b", "Invalid URL format"},
		{"short path", "/api/issues?url=https://github.com/a", "Invalid URL format"},
		{"bad page", "/api/commits?url=https://github.com/a/b&page=x", "page must be an integer"},
		{"negative cap", "/api/commits?url=https://github.com/a/b&cap=-1", "must not be negative"},
		{"bad since", "/api/issues?url=https://github.com/a/b&since=yesterday", "since must be an ISO-8601 timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := serve(t, nil, nil, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if msg, _ := out["error"].(string); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestList_UpstreamStatusMirrored(t *testing.T) {
	src := &fakeSource{err: &gh.UpstreamError{
		Status:  http.StatusNotFound,
		Message: "failed to list commits: Not Found",
		Details: map[string]string{"message": "Not Found"},
	}}

	rec, out := serve(t, src, nil, http.MethodGet, "/api/commits?url=https://github.com/owner/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if out["error"] != "GitHub API error" || out["message"] != "failed to list commits: Not Found" {
		t.Errorf("unexpected error body: %v", out)
	}
	if out["details"] == nil {
		t.Error("details should be passed through")
	}
}

func TestList_NetworkFailureIs500(t *testing.T) {
	src := &fakeSource{err: &gh.UpstreamError{Message: "dial tcp: refused"}}
	rec, _ := serve(t, src, nil, http.MethodGet, "/api/issues?url=https://github.com/owner/repo", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestGenerate(t *testing.T) {
	content := "# Report"
	run := &fakeRunner{res: &orchestrator.Result{
		Ref:     repository.Reference{Owner: "owner", Repo: "repo"},
		State:   orchestrator.StateDone,
		Commits: []gh.CommitRecord{{SHA: "a"}},
		Issues:  []gh.IssueRecord{{Number: 1}},
		Report:  &narrative.Report{Content: content, GeneratedAt: time.Now()},
	}}

	rec, out := serve(t, nil, run, http.MethodPost, "/api/generate", `{"repoUrl": " https://github.com/owner/repo "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out["content"] != content {
		t.Errorf("content = %v", out["content"])
	}
	if run.url != "https://github.com/owner/repo" {
		t.Errorf("runner got %q", run.url)
	}
	if _, ok := out["errors"]; ok {
		t.Errorf("no errors expected: %v", out["errors"])
	}
}

func TestGenerate_PartialFailure(t *testing.T) {
	run := &fakeRunner{res: &orchestrator.Result{
		Ref:        repository.Reference{Owner: "owner", Repo: "repo"},
		State:      orchestrator.StatePartialFailure,
		CommitsErr: fmt.Errorf("commits: %w", &gh.UpstreamError{Status: 404, Message: "Not Found"}),
		Issues:     []gh.IssueRecord{{Number: 1}, {Number: 2}},
	}}

	rec, out := serve(t, nil, run, http.MethodPost, "/api/generate", `{"repoUrl":"https://github.com/owner/repo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["content"] != nil {
		t.Errorf("content should be null, got %v", out["content"])
	}
	if issues, _ := out["issues"].([]any); len(issues) != 2 {
		t.Errorf("issues should still be returned: %v", out["issues"])
	}
	errs, _ := out["errors"].(map[string]any)
	stage, _ := errs["commits"].(map[string]any)
	if stage["status"] != float64(404) {
		t.Errorf("commit stage error = %v", errs)
	}
}

func TestGenerate_BackendFailure(t *testing.T) {
	run := &fakeRunner{res: &orchestrator.Result{
		Ref:           repository.Reference{Owner: "owner", Repo: "repo"},
		State:         orchestrator.StateGenerationFailed,
		Commits:       []gh.CommitRecord{{SHA: "a"}},
		Issues:        []gh.IssueRecord{{Number: 1}},
		GenerationErr: fmt.Errorf("%w: timeout", narrative.ErrGenerationBackend),
	}}

	rec, out := serve(t, nil, run, http.MethodPost, "/api/generate", `{"repoUrl":"https://github.com/owner/repo"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if out["error"] != "Generation failed" {
		t.Errorf("error = %v", out["error"])
	}
	if commits, _ := out["commits"].([]any); len(commits) != 1 {
		t.Error("fetched commits should remain in the response")
	}
}

func TestGenerate_BothStreamsFailed(t *testing.T) {
	run := &fakeRunner{res: &orchestrator.Result{
		Ref:        repository.Reference{Owner: "owner", Repo: "missing"},
		State:      orchestrator.StatePartialFailure,
		CommitsErr: fmt.Errorf("commits: %w", &gh.UpstreamError{Status: 404, Message: "Not Found"}),
		IssuesErr:  fmt.Errorf("issues: %w", &gh.UpstreamError{Status: 404, Message: "Not Found"}),
	}}

	rec, out := serve(t, nil, run, http.MethodPost, "/api/generate", `{"repoUrl":"https://github.com/owner/missing"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
	if out["error"] != "GitHub API error" {
		t.Errorf("error = %v", out["error"])
	}
	if msg, _ := out["message"].(string); !strings.Contains(msg, "Not Found") {
		t.Errorf("message = %v", out["message"])
	}
	errs, _ := out["errors"].(map[string]any)
	if _, ok := errs["commits"]; !ok {
		t.Errorf("commit stage error missing: %v", out["errors"])
	}
	if _, ok := errs["issues"]; !ok {
		t.Errorf("issue stage error missing: %v", out["errors"])
	}
}

func TestGenerate_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want string
	}{
		{"invalid json", `{`, nil, "Invalid request"},
		{"missing url", `{}`, nil, "Missing repoUrl"},
		{"blank url", `{"repoUrl": "  "}`, nil, "Missing repoUrl"},
		{"oversized body", `{"repoUrl": "https://github.com/owner/` + strings.Repeat("a", maxGenerateBody) + `"}`, nil, "Invalid request"},
		{"rejected url", `{"repoUrl": "https://gitlab.com/a/b"}`, fmt.Errorf("%w: gitlab.com", repository.ErrUnsupportedHost), "Invalid URL format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := serve(t, nil, &fakeRunner{err: tt.err}, http.MethodPost, "/api/generate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if out["error"] != tt.want {
				t.Errorf("error = %v, want %q", out["error"], tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{repository.ErrInvalidURL, 400},
		{&gh.UpstreamError{Status: 403}, 403},
		{&gh.UpstreamError{Status: 0}, 500},
		{narrative.ErrGenerationBackend, 502},
		{context.DeadlineExceeded, 504},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/commits?url=https://github.com/owner/repo", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()

	NewRouter(&fakeSource{}, &fakeRunner{}, Options{}).ServeHTTP(rec, req)

	if got := rec.Header().Get(headerRequestID); got != "req-123" {
		t.Errorf("request id = %q, want req-123", got)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler())
	if srv.Addr() != "127.0.0.1:0" {
		t.Errorf("Addr() = %q", srv.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
