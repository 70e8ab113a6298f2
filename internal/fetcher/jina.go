package fetcher

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mydailyprop/pkg/jina"
)

// JinaFetcher reads pages through the Jina AI Reader, which returns markdown.
type JinaFetcher struct {
	client jina.Client
}

// NewJina creates a fetcher backed by the Jina AI Reader.
func NewJina(client jina.Client) *JinaFetcher {
	return &JinaFetcher{client: client}
}

// Fetch implements Fetcher.
func (f *JinaFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.Read(ctx, url)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: jina read %s", url)
	}
	if resp == nil || (resp.Code != 0 && resp.Code != 200) {
		code := 0
		if resp != nil {
			code = resp.Code
		}
		return "", eris.Wrapf(ErrBlocked, "fetcher: jina returned code %d for %s", code, url)
	}
	if blocked(resp.Data.Content) {
		return "", eris.Wrapf(ErrBlocked, "fetcher: jina content for %s", url)
	}

	zap.L().Debug("fetcher: jina read",
		zap.String("url", url),
		zap.String("title", resp.Data.Title),
		zap.Int("tokens", resp.Data.Usage.Tokens),
	)
	return resp.Data.Content, nil
}
