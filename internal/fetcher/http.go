package fetcher

import (
	"bytes"
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// browserHeaders is the request profile sent with every GET. The upstream
// serves different payloads to clients that don't look like a real browser.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Origin":          "https://www.youtube.com",
	"Referer":         "https://www.youtube.com/",
}

// HTTPOptions configures the HTTP client.
type HTTPOptions struct {
	Timeout    time.Duration
	MaxRetries int
	// UserAgent overrides the default browser profile user agent.
	UserAgent string
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
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPClient implements Client using net/http with retry and per-host
// rate limiting tuned for an upstream that punishes bursts.
type HTTPClient struct {
	client   *http.Client
	opts     HTTPOptions
	fallback *rate.Limiter
	adaptive map[string]*AdaptiveLimiter
}

// DefaultAdaptiveLimiters returns conservative limiters for the caption hosts.
func DefaultAdaptiveLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"www.youtube.com":         NewAdaptiveLimiter(2, 4),
		"youtube.com":             NewAdaptiveLimiter(2, 4),
		"youtubei.googleapis.com": NewAdaptiveLimiter(2, 4),
	}
}

// NewHTTPClient creates an HTTPClient with the given options.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		fallback: rate.NewLimiter(5, 5),
		adaptive: DefaultAdaptiveLimiters(),
	}
}

func (c *HTTPClient) limiterFor(rawURL string) *AdaptiveLimiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return c.adaptive[u.Host]
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
}

// Get fetches a URL with the browser request profile.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	c.setHeaders(req)
	return c.doWithRetry(ctx, req, nil)
}

// Post sends a JSON body, used by the internal player API surface.
func (c *HTTPClient) Post(ctx context.Context, rawURL string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return c.doWithRetry(ctx, req, body)
}

// doWithRetry retries connection-level failures and 5xx responses. Anything
// else, including 429 and empty-body 200, is returned for the strategy layer
// to classify.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*Response, error) {
	adaptive := c.limiterFor(req.URL.String())

	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if adaptive != nil {
			if err := adaptive.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "fetcher: rate limiter wait")
			}
		} else if err := c.fallback.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		cloned := req.Clone(ctx)
		if body != nil {
			cloned.Body = io.NopCloser(bytes.NewReader(body))
		}
		resp, err := c.client.Do(cloned)
		if err != nil {
			lastErr = err
			zap.L().Debug("fetcher: request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("fetcher: http %d from %s", resp.StatusCode, req.URL.String())
			c.backoff(ctx, attempt)
			continue
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = eris.Wrap(err, "fetcher: read body")
			c.backoff(ctx, attempt)
			continue
		}

		if adaptive != nil {
			if resp.StatusCode == http.StatusTooManyRequests {
				adaptive.OnRateLimit()
			} else {
				adaptive.OnSuccess()
			}
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
		}, nil
	}

	return nil, eris.Wrap(lastErr, "fetcher: all retries exhausted")
}

func (c *HTTPClient) backoff(ctx context.Context, attempt int) {
	base := 500 * time.Millisecond
	maxBackoff := 8 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int63n(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
