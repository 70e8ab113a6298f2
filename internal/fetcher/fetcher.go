// Package fetcher retrieves the raw content of editorial pages.
package fetcher

import (
	"context"
	"errors"
)

// Fetcher retrieves the textual content behind a URL.
type Fetcher interface {
	// Fetch returns the page content, markdown or raw text depending on
	// the provider.
	Fetch(ctx context.Context, url string) (string, error)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, url string) (string, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// ErrBlocked is returned when a provider answered with an empty page or a
// bot-challenge page instead of the article.
var ErrBlocked = errors.New("fetcher: page blocked or empty")
