package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultUserAgent    = "mydailyprop/1.0"
	defaultRate         = rate.Limit(5)
	defaultMaxBodyBytes = 5 << 20
)

// ErrBodyTooLarge is returned when a response body exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("fetcher: response body too large")

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond is the per-host request rate.
	RequestsPerSecond float64
	// MaxBodyBytes caps the response body. Larger pages fail rather than
	// being analysed truncated.
	MaxBodyBytes int64
	// RateLimiters overrides the limiter used for specific hosts.
	RateLimiters map[string]*rate.Limiter
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("fetcher: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// waiter is satisfied by both fixed and adaptive limiters.
type waiter interface {
	Wait(ctx context.Context) error
}

// HTTPFetcher GETs pages directly. It makes a single attempt per call.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	fixed    map[string]*rate.Limiter
	adaptive map[string]*AdaptiveLimiter
}

// NewHTTP creates an HTTPFetcher with the given options.
func NewHTTP(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = float64(defaultRate)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	fixed := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for k, v := range opts.RateLimiters {
		fixed[k] = v
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		fixed:    fixed,
		adaptive: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) (waiter, *AdaptiveLimiter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.fixed[host]; ok {
		return lim, nil
	}
	a, ok := f.adaptive[host]
	if !ok {
		r := rate.Limit(f.opts.RequestsPerSecond)
		a = NewAdaptiveLimiter(r, max(1, int(f.opts.RequestsPerSecond)))
		f.adaptive[host] = a
	}
	return a, a
}

// Fetch implements Fetcher. The body is decoded to UTF-8 using the charset
// declared in the Content-Type header.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse url")
	}

	lim, adaptive := f.limiterFor(u.Host)
	if err := lim.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests && adaptive != nil {
		adaptive.OnRateLimit()
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	if adaptive != nil {
		adaptive.OnSuccess()
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: read body from %s", rawURL)
	}
	if int64(len(raw)) > f.opts.MaxBodyBytes {
		zap.L().Warn("fetcher: response body over cap",
			zap.String("url", rawURL),
			zap.Int64("max_body_bytes", f.opts.MaxBodyBytes),
		)
		return "", eris.Wrapf(ErrBodyTooLarge, "fetcher: %s exceeds %d bytes", rawURL, f.opts.MaxBodyBytes)
	}

	body, err := decodeBody(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: decode body from %s", rawURL)
	}
	if blocked(string(data)) {
		return "", eris.Wrapf(ErrBlocked, "fetcher: http content for %s", rawURL)
	}
	return string(data), nil
}

// decodeBody wraps r with a UTF-8 decoder for the charset named in
// contentType. A missing or unparsable content type, or a UTF-8 charset,
// passes through unchanged. A charset htmlindex does not know is an error.
func decodeBody(r io.Reader, contentType string) (io.Reader, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r, nil
	}
	charset := strings.TrimSpace(params["charset"])
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}
