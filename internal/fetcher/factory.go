package fetcher

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/mydailyprop/internal/config"
	"github.com/sells-group/mydailyprop/pkg/firecrawl"
	"github.com/sells-group/mydailyprop/pkg/jina"
)

// FromConfig builds the fetcher chain named by fetch.providers.
func FromConfig(cfg *config.Config) (*ChainFetcher, error) {
	if len(cfg.Fetch.Providers) == 0 {
		return nil, eris.New("fetcher: no providers configured")
	}

	providers := make([]Named, 0, len(cfg.Fetch.Providers))
	for _, name := range cfg.Fetch.Providers {
		var f Fetcher
		switch name {
		case config.FetchJina:
			var opts []jina.Option
			if cfg.Jina.BaseURL != "" {
				opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
			}
			f = NewJina(jina.NewClient(cfg.Jina.Key, opts...))
		case config.FetchFirecrawl:
			var opts []firecrawl.Option
			if cfg.Firecrawl.BaseURL != "" {
				opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
			}
			f = NewFirecrawl(firecrawl.NewClient(cfg.Firecrawl.Key, opts...), cfg.Fetch.Timeout())
		case config.FetchHTTP:
			f = NewHTTP(HTTPOptions{
				UserAgent:         cfg.Fetch.UserAgent,
				Timeout:           cfg.Fetch.Timeout(),
				RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
				MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
			})
		default:
			return nil, eris.Errorf("fetcher: unknown provider %q", name)
		}
		f = WithBreaker(name, f, cfg.Fetch.BreakerThreshold, cfg.Fetch.BreakerReset())
		providers = append(providers, Named{Name: name, Fetcher: f})
	}
	return Chain(providers...), nil
}
