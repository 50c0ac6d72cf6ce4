package github

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/go-github/v77/github"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

// CommitRecord is the canonical form of one upstream commit.
// Absent upstream values are omitted from JSON; nullable ones serialize as null.
type CommitRecord struct {
	SHA         string  `json:"sha"`
	URL         string  `json:"url"`
	Message     *string `json:"message,omitempty"`
	AuthorName  *string `json:"authorName,omitempty"`
	AuthorLogin *string `json:"authorLogin"`
	AuthorURL   *string `json:"authorUrl"`
	Date        *string `json:"date,omitempty"` // ISO-8601
}

// IssueRecord is the canonical form of one upstream issue.
type IssueRecord struct {
	ID          int64      `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        *string    `json:"body"`
	State       string     `json:"state"` // open, closed
	URL         string     `json:"url"`
	AuthorName  *string    `json:"authorName"`
	AuthorLogin *string    `json:"authorLogin"`
	AuthorURL   *string    `json:"authorUrl"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
	ClosedAt    *string    `json:"closedAt"`
	Labels      []Label    `json:"labels"`
	Assignees   []Assignee `json:"assignees"`
}

// Label is an issue label in canonical shape.
type Label struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
}

// Assignee is a user assigned to an issue.
type Assignee struct {
	ID    int64   `json:"id"`
	Login string  `json:"login"`
	Name  *string `json:"name"`
	URL   string  `json:"url"`
}

// IssuePayload is one element of the list-issues response body.
// It is decoded directly rather than through github.Issue because labels
// may arrive either as objects or as bare strings.
type IssuePayload struct {
	ID        *int64            `json:"id,omitempty"`
	Number    *int              `json:"number,omitempty"`
	Title     *string           `json:"title,omitempty"`
	Body      *string           `json:"body,omitempty"`
	State     *string           `json:"state,omitempty"`
	HTMLURL   *string           `json:"html_url,omitempty"`
	User      *github.User      `json:"user,omitempty"`
	CreatedAt *github.Timestamp `json:"created_at,omitempty"`
	UpdatedAt *github.Timestamp `json:"updated_at,omitempty"`
	ClosedAt  *github.Timestamp `json:"closed_at,omitempty"`
	Labels    []LabelEntry      `json:"labels,omitempty"`
	Assignees []*github.User    `json:"assignees,omitempty"`
}

// LabelEntry holds a label that was sent either as a string (Name, with
// IsString set) or as an object (Object). A JSON null leaves all unset.
type LabelEntry struct {
	Name     string
	IsString bool
	Object   *github.Label
}

// UnmarshalJSON implements json.Unmarshaler
func (l *LabelEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = LabelEntry{}
		return nil
	case data[0] == '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*l = LabelEntry{Name: name, IsString: true}
		return nil
	default:
		var obj github.Label
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*l = LabelEntry{Object: &obj}
		return nil
	}
}

// MarshalJSON implements json.Marshaler
func (l LabelEntry) MarshalJSON() ([]byte, error) {
	if l.Object != nil {
		return json.Marshal(l.Object)
	}
	if !l.IsString {
		return []byte("null"), nil
	}
	return json.Marshal(l.Name)
}

// Rate carries the raw rate-limit headers of a response, unvalidated.
type Rate struct {
	Remaining string `json:"remaining,omitempty"`
	Limit     string `json:"limit,omitempty"`
}

// Cursor describes the pagination state of a fetch.
type Cursor struct {
	Page      int `json:"page"`
	PerPage   int `json:"per_page"`
	Cap       int `json:"cap,omitempty"`
	Collected int `json:"collected"`
}

// Fetch modes
const (
	ModePage = "page"
	ModeAll  = "all"
)

// CommitFilter is forwarded to the list-commits endpoint unchanged.
// Zero values are not sent.
type CommitFilter struct {
	Branch string // sha parameter: branch name or commit SHA
	Since  time.Time
	Until  time.Time
}

// IssueFilter is forwarded to the list-issues endpoint unchanged.
type IssueFilter struct {
	State     string // open, closed, all
	Sort      string // created, updated, comments
	Direction string // asc, desc
	Since     time.Time
}

// CommitQuery selects single-page or exhaustive mode for commits.
type CommitQuery struct {
	Filter  CommitFilter
	Page    int
	PerPage int
	All     bool
	Cap     int
}

// IssueQuery selects single-page or exhaustive mode for issues.
type IssueQuery struct {
	Filter  IssueFilter
	Page    int
	PerPage int
	All     bool
	Cap     int
}

// CommitResult is the outcome of a successful commit fetch.
type CommitResult struct {
	Ref     repository.Reference
	Mode    string
	Cursor  Cursor
	Rate    Rate
	Commits []CommitRecord
}

// IssueResult is the outcome of a successful issue fetch.
type IssueResult struct {
	Ref    repository.Reference
	Mode   string
	Cursor Cursor
	Rate   Rate
	Issues []IssueRecord
}
