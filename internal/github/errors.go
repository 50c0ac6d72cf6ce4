package github

import (
	"errors"
	"fmt"

	"github.com/google/go-github/v77/github"
)

// UpstreamError reports a failed list request. Status is the HTTP status of
// the upstream response, or 0 when no response was received.
type UpstreamError struct {
	Status  int
	Message string
	Details any
	Err     error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("github API error: %s", e.Message)
	}
	return fmt.Sprintf("github API error (status %d): %s", e.Status, e.Message)
}

// Unwrap returns the underlying go-github or transport error
func (e *UpstreamError) Unwrap() error { return e.Err }

type errorDetails struct {
	Message          string         `json:"message,omitempty"`
	Errors           []github.Error `json:"errors,omitempty"`
	DocumentationURL string         `json:"documentation_url,omitempty"`
}

type rateLimitDetails struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	Reset     string `json:"reset,omitempty"`
}

// handleAPIError wraps API errors with context and detects rate limiting
func handleAPIError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		reset := rateLimitErr.Rate.Reset.Time
		details := rateLimitDetails{
			Limit:     rateLimitErr.Rate.Limit,
			Remaining: rateLimitErr.Rate.Remaining,
			Used:      rateLimitErr.Rate.Used,
		}
		if !reset.IsZero() {
			details.Reset = reset.UTC().Format("2006-01-02T15:04:05Z")
		}
		return &UpstreamError{
			Status: statusOf(rateLimitErr.Response),
			Message: fmt.Sprintf("%s: hit primary rate limit (used %d of %d, resets at %v)",
				msg, rateLimitErr.Rate.Used, rateLimitErr.Rate.Limit, reset),
			Details: details,
			Err:     err,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &UpstreamError{
			Status:  statusOf(abuseErr.Response),
			Message: fmt.Sprintf("%s: hit secondary rate limit (retry after %v)", msg, abuseErr.GetRetryAfter()),
			Err:     err,
		}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return &UpstreamError{
			Status:  statusOf(respErr.Response),
			Message: fmt.Sprintf("%s: %s", msg, respErr.Message),
			Details: errorDetails{
				Message:          respErr.Message,
				Errors:           respErr.Errors,
				DocumentationURL: respErr.DocumentationURL,
			},
			Err: err,
		}
	}

	return &UpstreamError{
		Message: fmt.Sprintf("%s: %v", msg, err),
		Err:     err,
	}
}
