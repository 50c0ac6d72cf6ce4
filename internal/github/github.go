// Package github fetches commit and issue history from the GitHub REST API
// and normalizes it into canonical records.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v77/github"
	"github.com/google/go-querystring/query"
	"github.com/robinyoon-dev/repo-spect/internal/logger"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

// Client lists repository history. It is safe for concurrent use and holds
// no per-request state.
type Client struct {
	gh  *github.Client
	log *logger.Logger
}

// NewClient creates a GitHub API client.
// token is optional; without it requests are unauthenticated (lower rate limit).
// baseURL overrides the API root, e.g. for GitHub Enterprise or tests.
func NewClient(token, baseURL string) (*Client, error) {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, log: logger.Named("github")}, nil
}

// Commits lists commits of ref in single-page or exhaustive mode.
func (c *Client) Commits(ctx context.Context, ref repository.Reference, q CommitQuery) (*CommitResult, error) {
	pages := c.commitPages(ref, q.Filter)

	if q.All {
		raw, cur, err := FetchAll(ctx, pages, q.Cap)
		if err != nil {
			return nil, err
		}
		return &CommitResult{Ref: ref, Mode: ModeAll, Cursor: cur, Commits: NormalizeCommits(raw)}, nil
	}

	page, err := FetchPage(ctx, pages, q.Page, q.PerPage)
	if err != nil {
		return nil, err
	}
	return &CommitResult{
		Ref:     ref,
		Mode:    ModePage,
		Cursor:  page.Cursor,
		Rate:    page.Rate,
		Commits: NormalizeCommits(page.Items),
	}, nil
}

// Issues lists issues of ref in single-page or exhaustive mode.
func (c *Client) Issues(ctx context.Context, ref repository.Reference, q IssueQuery) (*IssueResult, error) {
	pages := c.issuePages(ref, q.Filter)

	if q.All {
		raw, cur, err := FetchAll(ctx, pages, q.Cap)
		if err != nil {
			return nil, err
		}
		return &IssueResult{Ref: ref, Mode: ModeAll, Cursor: cur, Issues: NormalizeIssues(raw)}, nil
	}

	page, err := FetchPage(ctx, pages, q.Page, q.PerPage)
	if err != nil {
		return nil, err
	}
	return &IssueResult{
		Ref:    ref,
		Mode:   ModePage,
		Cursor: page.Cursor,
		Rate:   page.Rate,
		Issues: NormalizeIssues(page.Items),
	}, nil
}

func (c *Client) commitPages(ref repository.Reference, f CommitFilter) PageFunc[*github.RepositoryCommit] {
	return func(ctx context.Context, page, perPage int) ([]*github.RepositoryCommit, Rate, error) {
		opts := &github.CommitsListOptions{
			SHA:         f.Branch,
			Since:       f.Since,
			Until:       f.Until,
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		}

		commits, resp, err := c.gh.Repositories.ListCommits(ctx, ref.Owner, ref.Repo, opts)
		if err != nil {
			return nil, Rate{}, handleAPIError(err, "failed to list commits")
		}

		rate := rateOf(resp)
		c.log.Debug().
			Str("repo", ref.String()).
			Int("page", page).
			Int("count", len(commits)).
			Str("rate_remaining", rate.Remaining).
			Msg("fetched commit page")
		return commits, rate, nil
	}
}

// issuePages goes through NewRequest/Do instead of Issues.ListByRepo so the
// body can be decoded into IssuePayload.
func (c *Client) issuePages(ref repository.Reference, f IssueFilter) PageFunc[*IssuePayload] {
	return func(ctx context.Context, page, perPage int) ([]*IssuePayload, Rate, error) {
		opts := &github.IssueListByRepoOptions{
			State:       f.State,
			Sort:        f.Sort,
			Direction:   f.Direction,
			Since:       f.Since,
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		}

		u, err := withOptions(fmt.Sprintf("repos/%v/%v/issues", ref.Owner, ref.Repo), opts)
		if err != nil {
			return nil, Rate{}, handleAPIError(err, "failed to encode issue query")
		}

		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, Rate{}, handleAPIError(err, "failed to build issues request")
		}

		var issues []*IssuePayload
		resp, err := c.gh.Do(ctx, req, &issues)
		if err != nil {
			return nil, Rate{}, handleAPIError(err, "failed to list issues")
		}

		rate := rateOf(resp)
		c.log.Debug().
			Str("repo", ref.String()).
			Int("page", page).
			Int("count", len(issues)).
			Str("rate_remaining", rate.Remaining).
			Msg("fetched issue page")
		return issues, rate, nil
	}
}

// withOptions appends the url-tagged fields of opts to path
func withOptions(path string, opts any) (string, error) {
	v, err := query.Values(opts)
	if err != nil {
		return path, err
	}
	if enc := v.Encode(); enc != "" {
		return path + "?" + enc, nil
	}
	return path, nil
}

// rateOf copies the raw rate-limit headers; absent headers stay empty
func rateOf(resp *github.Response) Rate {
	if resp == nil || resp.Response == nil {
		return Rate{}
	}
	return Rate{
		Remaining: resp.Header.Get("X-RateLimit-Remaining"),
		Limit:     resp.Header.Get("X-RateLimit-Limit"),
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
