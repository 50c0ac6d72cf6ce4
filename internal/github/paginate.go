package github

import "context"

const (
	DefaultPerPage = 10
	MaxPerPage     = 100 // GitHub rejects larger pages
	DefaultCap     = 500
	MaxCap         = 2000
)

// PageFunc fetches one page of raw items from a list endpoint.
type PageFunc[T any] func(ctx context.Context, page, perPage int) ([]T, Rate, error)

// Page is the result of a single-page fetch.
type Page[T any] struct {
	Items  []T
	Cursor Cursor
	Rate   Rate
}

// ClampPage returns page, or 1 when page is not positive.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPerPage applies the default and the upstream ceiling.
func ClampPerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	return min(perPage, MaxPerPage)
}

// ClampCap applies the default and the hard ceiling. Larger requests are
// reduced, never rejected.
func ClampCap(limit int) int {
	if limit <= 0 {
		return DefaultCap
	}
	return min(limit, MaxCap)
}

// FetchPage fetches exactly one page.
func FetchPage[T any](ctx context.Context, fetch PageFunc[T], page, perPage int) (Page[T], error) {
	cur := Cursor{Page: ClampPage(page), PerPage: ClampPerPage(perPage)}

	items, rate, err := fetch(ctx, cur.Page, cur.PerPage)
	if err != nil {
		return Page[T]{}, err
	}

	cur.Collected = len(items)
	return Page[T]{Items: items, Cursor: cur, Rate: rate}, nil
}

// FetchAll walks pages of MaxPerPage items from page 1 until a page comes
// back empty or short, or until limit items are collected. Items past the
// limit are dropped. A failing page fails the whole fetch and nothing
// collected so far is returned.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], limit int) ([]T, Cursor, error) {
	cur := Cursor{Page: 1, PerPage: MaxPerPage, Cap: ClampCap(limit)}
	var collected []T

	for {
		items, _, err := fetch(ctx, cur.Page, cur.PerPage)
		if err != nil {
			return nil, cur, err
		}

		n := len(items)
		if n == 0 {
			break
		}

		if room := cur.Cap - len(collected); n > room {
			items = items[:room]
		}
		collected = append(collected, items...)
		cur.Collected = len(collected)

		if cur.Collected >= cur.Cap || n < cur.PerPage {
			break
		}
		cur.Page++
	}

	return collected, cur, nil
}
