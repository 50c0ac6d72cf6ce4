package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

var errBadRequest = errors.New("bad request")

const missingURL = "`url` query is required. Example: /api/commits?url=https://github.com/vercel/next.js"

type commitsPage struct {
	Owner   string            `json:"owner"`
	Repo    string            `json:"repo"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
	Count   int               `json:"count"`
	Rate    gh.Rate           `json:"rate"`
	Commits []gh.CommitRecord `json:"commits"`
}

type commitsAll struct {
	Owner   string            `json:"owner"`
	Repo    string            `json:"repo"`
	Mode    string            `json:"mode"`
	Cap     int               `json:"cap"`
	Count   int               `json:"count"`
	Commits []gh.CommitRecord `json:"commits"`
}

type issuesPage struct {
	Owner   string           `json:"owner"`
	Repo    string           `json:"repo"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	Count   int              `json:"count"`
	Rate    gh.Rate          `json:"rate"`
	Issues  []gh.IssueRecord `json:"issues"`
}

type issuesAll struct {
	Owner  string           `json:"owner"`
	Repo   string           `json:"repo"`
	Mode   string           `json:"mode"`
	Cap    int              `json:"cap"`
	Count  int              `json:"count"`
	Issues []gh.IssueRecord `json:"issues"`
}

// listParams are the query parameters shared by the list routes
type listParams struct {
	Page    int `validate:"gte=0"`
	PerPage int `validate:"gte=0"`
	Cap     int `validate:"gte=0"`
	All     bool
}

func (h *handler) commits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref, lp, err := h.parseList(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filter := gh.CommitFilter{Branch: q.Get("branch")}
	if filter.Since, err = parseTime(q, "since"); err == nil {
		filter.Until, err = parseTime(q, "until")
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.source.Commits(r.Context(), ref, gh.CommitQuery{
		Filter: filter, Page: lp.Page, PerPage: lp.PerPage, All: lp.All, Cap: lp.Cap,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CommitsBody(res))
}

// CommitsBody shapes a commit result the way GET /api/commits returns it
func CommitsBody(res *gh.CommitResult) any {
	commits := nonNil(res.Commits)
	if res.Mode == gh.ModeAll {
		return commitsAll{
			Owner: res.Ref.Owner, Repo: res.Ref.Repo, Mode: res.Mode, Cap: res.Cursor.Cap,
			Count: len(commits), Commits: commits,
		}
	}
	return commitsPage{
		Owner: res.Ref.Owner, Repo: res.Ref.Repo, Page: res.Cursor.Page, PerPage: res.Cursor.PerPage,
		Count: len(commits), Rate: res.Rate, Commits: commits,
	}
}

func (h *handler) issues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref, lp, err := h.parseList(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filter := gh.IssueFilter{
		State:     q.Get("state"),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
	}
	if filter.Since, err = parseTime(q, "since"); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.source.Issues(r.Context(), ref, gh.IssueQuery{
		Filter: filter, Page: lp.Page, PerPage: lp.PerPage, All: lp.All, Cap: lp.Cap,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IssuesBody(res))
}

// IssuesBody shapes an issue result the way GET /api/issues returns it
func IssuesBody(res *gh.IssueResult) any {
	issues := nonNil(res.Issues)
	if res.Mode == gh.ModeAll {
		return issuesAll{
			Owner: res.Ref.Owner, Repo: res.Ref.Repo, Mode: res.Mode, Cap: res.Cursor.Cap,
			Count: len(issues), Issues: issues,
		}
	}
	return issuesPage{
		Owner: res.Ref.Owner, Repo: res.Ref.Repo, Page: res.Cursor.Page, PerPage: res.Cursor.PerPage,
		Count: len(issues), Rate: res.Rate, Issues: issues,
	}
}

type generateRequest struct {
	RepoURL string `json:"repoUrl" validate:"required"`
}

// stageError describes one failed pipeline stage
type stageError struct {
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type generateResponse struct {
	Error   string                `json:"error,omitempty"`
	Message string                `json:"message,omitempty"`
	Content *string               `json:"content"`
	State   string                `json:"state"`
	Owner   string                `json:"owner"`
	Repo    string                `json:"repo"`
	Commits []gh.CommitRecord     `json:"commits"`
	Issues  []gh.IssueRecord      `json:"issues"`
	Errors  map[string]stageError `json:"errors,omitempty"`
}

// maxGenerateBody bounds the POST /api/generate request body
const maxGenerateBody = 1 << 20

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request"})
		return
	}
	req.RepoURL = strings.TrimSpace(req.RepoURL)
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing repoUrl"})
		return
	}

	res, err := h.pipeline.Run(r.Context(), req.RepoURL)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := generateResponse{
		State:   string(res.State),
		Owner:   res.Ref.Owner,
		Repo:    res.Ref.Repo,
		Commits: nonNil(res.Commits),
		Issues:  nonNil(res.Issues),
	}
	if res.Report != nil {
		body.Content = &res.Report.Content
	}

	errs := map[string]stageError{}
	addStage(errs, "commits", res.CommitsErr)
	addStage(errs, "issues", res.IssuesErr)
	addStage(errs, "generation", res.GenerationErr)
	if len(errs) > 0 {
		body.Errors = errs
	}

	status := http.StatusOK
	switch {
	case res.CommitsErr != nil && res.IssuesErr != nil:
		// nothing was fetched; report the commit failure as the request error
		status = statusFor(res.CommitsErr)
		body.Error = titleFor(res.CommitsErr)
		body.Message = res.CommitsErr.Error()
	case res.GenerationErr != nil:
		status = statusFor(res.GenerationErr)
		body.Error = titleFor(res.GenerationErr)
		body.Message = res.GenerationErr.Error()
	}
	writeJSON(w, status, body)
}

// parseList reads url, page, per_page, all and cap
func (h *handler) parseList(q url.Values) (repository.Reference, listParams, error) {
	raw := strings.TrimSpace(q.Get("url"))
	if raw == "" {
		return repository.Reference{}, listParams{}, fmt.Errorf("%w: %s", errBadRequest, missingURL)
	}

	ref, err := repository.Parse(raw)
	if err != nil {
		return repository.Reference{}, listParams{}, err
	}

	var lp listParams
	if lp.Page, err = parseInt(q, "page"); err != nil {
		return ref, lp, err
	}
	if lp.PerPage, err = parseInt(q, "per_page"); err != nil {
		return ref, lp, err
	}
	if lp.Cap, err = parseInt(q, "cap"); err != nil {
		return ref, lp, err
	}
	lp.All = strings.EqualFold(q.Get("all"), "true")

	if err := h.validate.Struct(lp); err != nil {
		return ref, lp, fmt.Errorf("%w: page, per_page and cap must not be negative", errBadRequest)
	}
	return ref, lp, nil
}

// fail writes a 400 for bad input, keeping the message readable
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadRequest) {
		msg := strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
		return
	}
	writeError(w, r, err)
}

func parseInt(q url.Values, key string) (int, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return v, nil
}

func parseTime(q url.Values, key string) (time.Time, error) {
	s := q.Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an ISO-8601 timestamp", errBadRequest, key)
	}
	return t, nil
}

func addStage(errs map[string]stageError, stage string, err error) {
	if err == nil {
		return
	}
	se := stageError{Message: err.Error()}
	var upErr *gh.UpstreamError
	if errors.As(err, &upErr) {
		se.Status = upErr.Status
		se.Details = upErr.Details
	}
	errs[stage] = se
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
