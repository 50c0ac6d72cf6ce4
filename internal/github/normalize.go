package github

import (
	"time"

	"github.com/google/go-github/v77/github"
)

// NormalizeCommit converts a go-github RepositoryCommit to a CommitRecord.
func NormalizeCommit(rc *github.RepositoryCommit) CommitRecord {
	if rc == nil {
		return CommitRecord{}
	}

	record := CommitRecord{
		SHA: rc.GetSHA(),
		URL: rc.GetHTMLURL(),
	}

	if commit := rc.GetCommit(); commit != nil {
		record.Message = copyString(commit.Message)
		if author := commit.GetAuthor(); author != nil {
			record.AuthorName = copyString(author.Name)
			record.Date = formatTimestamp(author.Date)
		}
	}

	if user := rc.GetAuthor(); user != nil {
		record.AuthorLogin = copyString(user.Login)
		record.AuthorURL = copyString(user.HTMLURL)
	}

	return record
}

// NormalizeIssue converts a list-issues payload element to an IssueRecord.
// closed_at is passed through as sent; it is not checked against state.
func NormalizeIssue(p *IssuePayload) IssueRecord {
	if p == nil {
		return IssueRecord{Labels: []Label{}, Assignees: []Assignee{}}
	}

	issue := IssueRecord{
		Body:      copyString(p.Body),
		ClosedAt:  formatTimestamp(p.ClosedAt),
		Labels:    make([]Label, 0, len(p.Labels)),
		Assignees: make([]Assignee, 0, len(p.Assignees)),
	}
	if p.ID != nil {
		issue.ID = *p.ID
	}
	if p.Number != nil {
		issue.Number = *p.Number
	}
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.State != nil {
		issue.State = *p.State
	}
	if p.HTMLURL != nil {
		issue.URL = *p.HTMLURL
	}
	if s := formatTimestamp(p.CreatedAt); s != nil {
		issue.CreatedAt = *s
	}
	if s := formatTimestamp(p.UpdatedAt); s != nil {
		issue.UpdatedAt = *s
	}

	if user := p.User; user != nil {
		issue.AuthorName = copyString(user.Name)
		issue.AuthorLogin = copyString(user.Login)
		issue.AuthorURL = copyString(user.HTMLURL)
	}

	for _, entry := range p.Labels {
		if label, ok := normalizeLabel(entry); ok {
			issue.Labels = append(issue.Labels, label)
		}
	}

	for _, user := range p.Assignees {
		if user != nil {
			issue.Assignees = append(issue.Assignees, Assignee{
				ID:    user.GetID(),
				Login: user.GetLogin(),
				Name:  copyString(user.Name),
				URL:   user.GetHTMLURL(),
			})
		}
	}

	return issue
}

// normalizeLabel resolves the string/object union; null entries are dropped.
func normalizeLabel(entry LabelEntry) (Label, bool) {
	if entry.Object != nil {
		return Label{
			ID:          entry.Object.GetID(),
			Name:        entry.Object.GetName(),
			Color:       entry.Object.GetColor(),
			Description: copyString(entry.Object.Description),
		}, true
	}
	if entry.IsString {
		return Label{Name: entry.Name}, true
	}
	return Label{}, false
}

// NormalizeCommits converts a page of commits, skipping nil entries.
func NormalizeCommits(raw []*github.RepositoryCommit) []CommitRecord {
	records := make([]CommitRecord, 0, len(raw))
	for _, rc := range raw {
		if rc != nil {
			records = append(records, NormalizeCommit(rc))
		}
	}
	return records
}

// NormalizeIssues converts a page of issues, skipping nil entries.
func NormalizeIssues(raw []*IssuePayload) []IssueRecord {
	records := make([]IssueRecord, 0, len(raw))
	for _, p := range raw {
		if p != nil {
			records = append(records, NormalizeIssue(p))
		}
	}
	return records
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func formatTimestamp(ts *github.Timestamp) *string {
	if ts == nil || ts.IsZero() {
		return nil
	}
	s := ts.Time.Format(time.RFC3339)
	return &s
}
