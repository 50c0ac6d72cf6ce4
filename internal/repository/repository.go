// Package repository identifies a hosted repository from user input.
package repository

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Host is the only hosting domain accepted by Parse.
const Host = "github.com"

var (
	ErrInvalidURL        = errors.New("invalid URL format")
	ErrUnsupportedHost   = errors.New("not a GitHub URL")
	ErrMalformedRepoPath = errors.New("invalid GitHub repository URL")
)

// Reference identifies a repository by owner and name.
// Values are only produced by Parse, so both fields are non-empty.
type Reference struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// String returns the "owner/repo" form used by the GitHub API.
func (r Reference) String() string {
	return r.Owner + "/" + r.Repo
}

// Parse extracts the owner/repo pair from a GitHub repository URL.
// Extra path segments (tree/main, issues, ...) and trailing slashes are ignored.
func Parse(input string) (Reference, error) {
	input = strings.TrimSpace(input)

	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidURL, input)
	}

	if !strings.EqualFold(u.Hostname(), Host) {
		return Reference{}, fmt.Errorf("%w: host %q", ErrUnsupportedHost, u.Hostname())
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformedRepoPath, u.Path)
	}

	owner := segments[0]
	repo := strings.TrimSuffix(segments[1], ".git")
	if owner == "" || repo == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformedRepoPath, u.Path)
	}

	return Reference{Owner: owner, Repo: repo}, nil
}
