package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mydailyprop/pkg/firecrawl"
)

func TestFirecrawlFetcher_Success(t *testing.T) {
	client := &mockFirecrawlClient{}
	client.On("Scrape", mock.Anything, firecrawl.ScrapeRequest{
		URL:             "https://example.com/edito",
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		Timeout:         30000,
	}).Return(&firecrawl.ScrapeResponse{
		Success: true,
		Data: firecrawl.PageData{
			Markdown: article,
			Metadata: firecrawl.PageMetadata{Title: "Edito", StatusCode: 200},
		},
	}, nil)

	f := NewFirecrawl(client, 30*time.Second)
	got, err := f.Fetch(context.Background(), "https://example.com/edito")
	require.NoError(t, err)
	assert.Equal(t, article, got)
	client.AssertExpectations(t)
}

func TestFirecrawlFetcher_Errors(t *testing.T) {
	tests := []struct {
		name        string
		resp        *firecrawl.ScrapeResponse
		err         error
		wantBlocked bool
	}{
		{name: "api error", err: &firecrawl.APIError{StatusCode: 402, Body: "payment required"}},
		{
			name:        "page status 404",
			resp:        &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.PageData{Markdown: article, Metadata: firecrawl.PageMetadata{StatusCode: 404}}},
			wantBlocked: true,
		},
		{
			name:        "short markdown",
			resp:        &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.PageData{Markdown: "Access denied"}},
			wantBlocked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockFirecrawlClient{}
			if tt.resp == nil {
				client.On("Scrape", mock.Anything, mock.Anything).Return(nil, tt.err)
			} else {
				client.On("Scrape", mock.Anything, mock.Anything).Return(tt.resp, nil)
			}

			_, err := NewFirecrawl(client, 0).Fetch(context.Background(), "https://example.com")
			require.Error(t, err)
			assert.Equal(t, tt.wantBlocked, errors.Is(err, ErrBlocked))
		})
	}
}
