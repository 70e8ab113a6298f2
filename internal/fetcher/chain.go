package fetcher

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Named attaches a provider name to a Fetcher for logging.
type Named struct {
	Name string
	Fetcher
}

// ChainFetcher tries each provider in order and returns the first success.
type ChainFetcher struct {
	providers []Named
}

// Chain builds a fallback chain. The first provider is primary.
func Chain(providers ...Named) *ChainFetcher {
	return &ChainFetcher{providers: providers}
}

// Providers returns the provider names in fallback order.
func (c *ChainFetcher) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name
	}
	return names
}

// Fetch implements Fetcher. When every provider fails the last error is
// returned.
func (c *ChainFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if len(c.providers) == 0 {
		return "", eris.New("fetcher: no providers configured")
	}

	var lastErr error
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "fetcher: chain")
		}

		content, err := p.Fetch(ctx, url)
		if err == nil {
			if i > 0 {
				zap.L().Info("fetcher: fallback provider succeeded",
					zap.String("url", url),
					zap.String("provider", p.Name),
				)
			}
			return content, nil
		}

		lastErr = err
		zap.L().Warn("fetcher: provider failed",
			zap.String("url", url),
			zap.String("provider", p.Name),
			zap.Error(err),
		)
	}

	return "", eris.Wrapf(lastErr, "fetcher: all %d providers failed", len(c.providers))
}
