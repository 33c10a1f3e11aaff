package connector

import (
	"context"
)

// DefaultMaxPages caps pagination when a provider keeps returning cursors.
const DefaultMaxPages = 50

// Page is one page of results. An empty Next ends pagination.
type Page[T any] struct {
	Items []T
	Next  string
}

// PageFetcher loads the page at cursor; the first call receives "".
type PageFetcher[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Paginate accumulates every page. It stops after maxPages pages, or when a
// provider repeats a cursor, whichever comes first.
func Paginate[T any](ctx context.Context, fetch PageFetcher[T], maxPages int) ([]T, error) {
	var all []T
	err := walk(ctx, fetch, maxPages, func(items []T) bool {
		all = append(all, items...)
		return true
	})
	return all, err
}

// FindFirst pages until match returns true and returns that item.
func FindFirst[T any](ctx context.Context, fetch PageFetcher[T], maxPages int, match func(T) bool) (T, bool, error) {
	var (
		found T
		ok    bool
	)
	err := walk(ctx, fetch, maxPages, func(items []T) bool {
		for _, item := range items {
			if match(item) {
				found, ok = item, true
				return false
			}
		}
		return true
	})
	return found, ok, err
}

func walk[T any](ctx context.Context, fetch PageFetcher[T], maxPages int, visit func([]T) bool) error {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	seen := make(map[string]struct{})
	cursor := ""
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if !visit(p.Items) || p.Next == "" {
			return nil
		}
		if _, dup := seen[p.Next]; dup {
			return nil
		}
		seen[p.Next] = struct{}{}
		cursor = p.Next
	}
	return nil
}
