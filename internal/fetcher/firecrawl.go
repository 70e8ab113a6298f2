package fetcher

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mydailyprop/pkg/firecrawl"
)

// FirecrawlFetcher scrapes a single page through Firecrawl.
type FirecrawlFetcher struct {
	client  firecrawl.Client
	timeout time.Duration
}

// NewFirecrawl creates a fetcher backed by Firecrawl's scrape endpoint.
// A positive timeout is passed to Firecrawl as the server-side budget.
func NewFirecrawl(client firecrawl.Client, timeout time.Duration) *FirecrawlFetcher {
	return &FirecrawlFetcher{client: client, timeout: timeout}
}

// Fetch implements Fetcher.
func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		Timeout:         int(f.timeout.Milliseconds()),
	})
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: firecrawl scrape %s", url)
	}

	meta := resp.Data.Metadata
	if meta.StatusCode >= 400 {
		return "", eris.Wrapf(ErrBlocked, "fetcher: firecrawl page status %d for %s", meta.StatusCode, url)
	}
	if blocked(resp.Data.Markdown) {
		return "", eris.Wrapf(ErrBlocked, "fetcher: firecrawl content for %s", url)
	}

	zap.L().Debug("fetcher: firecrawl scrape",
		zap.String("url", url),
		zap.String("title", meta.Title),
		zap.String("language", meta.Language),
	)
	return resp.Data.Markdown, nil
}
