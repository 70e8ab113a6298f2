package fetcher

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/mydailyprop/pkg/firecrawl"
	"github.com/sells-group/mydailyprop/pkg/jina"
)

const testURL = "https://www.lemonde.fr/idees/article/2025/01/10/editorial.html"

// article is long enough to pass block detection.
var article = strings.Repeat("The government announced a reform of the pension system. ", 5)

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

type mockFirecrawlClient struct {
	mock.Mock
}

func (m *mockFirecrawlClient) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firecrawl.ScrapeResponse), args.Error(1)
}
