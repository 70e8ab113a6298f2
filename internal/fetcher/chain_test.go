package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func static(content string, err error, calls *int) Func {
	return func(context.Context, string) (string, error) {
		*calls++
		return content, err
	}
}

func TestChain_PrimarySucceeds(t *testing.T) {
	var primary, fallback int
	c := Chain(
		Named{Name: "jina", Fetcher: static("primary", nil, &primary)},
		Named{Name: "firecrawl", Fetcher: static("fallback", nil, &fallback)},
	)

	got, err := c.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "primary", got)
	assert.Equal(t, 1, primary)
	assert.Equal(t, 0, fallback)
	assert.Equal(t, []string{"jina", "firecrawl"}, c.Providers())
}

func TestChain_FallsBack(t *testing.T) {
	var primary, fallback int
	c := Chain(
		Named{Name: "jina", Fetcher: static("", ErrBlocked, &primary)},
		Named{Name: "firecrawl", Fetcher: static("fallback", nil, &fallback)},
	)

	got, err := c.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, 1, primary)
	assert.Equal(t, 1, fallback)
}

func TestChain_AllFail(t *testing.T) {
	last := errors.New("scrape failed")
	var a, b int
	c := Chain(
		Named{Name: "jina", Fetcher: static("", ErrBlocked, &a)},
		Named{Name: "firecrawl", Fetcher: static("", last, &b)},
	)

	_, err := c.Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "all 2 providers failed")
}

func TestChain_Empty(t *testing.T) {
	_, err := Chain().Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers configured")
}

func TestChain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	_, err := Chain(Named{Name: "jina", Fetcher: static("x", nil, &calls)}).Fetch(ctx, "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
