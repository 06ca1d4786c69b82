// Package fetch runs product searches against the catalog API.
//
// Every call pays an artificial network delay so loading states stay visible
// against a fast backend, and chaos mode replaces the request with an injected
// failure. Real requests carry a hard timeout that is independent of the
// artificial delay.
package fetch

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	"github.com/abelbrown/marketmon/internal/catalog"
)

const (
	DefaultEndpoint      = "https://dummyjson.com/products/search"
	DefaultFallbackQuery = "laptops"
	DefaultTimeout       = 8000 * time.Millisecond
	DefaultDelayMin      = 200 * time.Millisecond
	DefaultDelayMax      = 2000 * time.Millisecond
	DefaultUserAgent     = "marketmon/0.1"
)

// maxBodyBytes bounds how much of a response body is decoded.
const maxBodyBytes = 10 << 20

// Result is a successful search.
type Result struct {
	Raw catalog.SearchResponse
	// Latency is the real request time plus the simulated delay.
	Latency time.Duration
}

// Options configures a Client. Zero values select the package defaults.
type Options struct {
	Endpoint      string
	FallbackQuery string
	Timeout       time.Duration
	DelayMin      time.Duration
	DelayMax      time.Duration
	// RateLimit is the sustained outbound request rate. Zero disables limiting.
	RateLimit  rate.Limit
	RateBurst  int
	HTTPClient *http.Client
	UserAgent  string
}

// Client issues searches. Safe for concurrent use.
type Client struct {
	endpoint  string
	fallback  string
	timeout   time.Duration
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	delay     func() time.Duration
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.FallbackQuery == "" {
		opts.FallbackQuery = DefaultFallbackQuery
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DelayMin == 0 && opts.DelayMax == 0 {
		opts.DelayMin, opts.DelayMax = DefaultDelayMin, DefaultDelayMax
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	limit, burst := opts.RateLimit, opts.RateBurst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		endpoint:  opts.Endpoint,
		fallback:  opts.FallbackQuery,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		client:    opts.HTTPClient,
		limiter:   rate.NewLimiter(limit, burst),
		delay:     UniformDelay(opts.DelayMin, opts.DelayMax),
	}
}

// UniformDelay returns a generator of durations uniformly distributed in
// [lo, hi). If hi <= lo it always returns lo.
func UniformDelay(lo, hi time.Duration) func() time.Duration {
	span := hi - lo
	return func() time.Duration {
		if span <= 0 {
			return lo
		}
		return lo + time.Duration(rand.Int63n(int64(span)))
	}
}

// Timeout returns the hard request budget.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Fetch runs one search for query. An empty query searches for the fallback
// term. ctx is the caller's cancellation token; cancelling it aborts the
// request (reported as a TimeoutError wrapping context.Canceled) or the
// artificial delay.
//
// A non-nil error always implements Failure.
func (c *Client) Fetch(ctx context.Context, query string, chaos bool) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := c.delay()

	if chaos {
		// The injected failure is the outcome whether or not the wait completes.
		_ = sleep(ctx, delay)
		return Result{}, &InjectedFaultError{}
	}

	raw, elapsed, err := c.search(ctx, query, delay)
	if err != nil {
		return Result{}, err
	}

	if err := sleep(ctx, delay); err != nil {
		return Result{}, &TimeoutError{Estimate: c.timeout + delay, Err: err}
	}
	return Result{Raw: raw, Latency: elapsed + delay}, nil
}

// search waits for a rate-limit token, then performs the real request under
// the timeout budget. The timeout timer is released before search returns.
func (c *Client) search(ctx context.Context, query string, delay time.Duration) (catalog.SearchResponse, time.Duration, error) {
	var raw catalog.SearchResponse

	// The budget starts with the request, not with the wait for a token.
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return raw, 0, &TimeoutError{Estimate: c.timeout + delay, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.searchURL(query), nil)
	if err != nil {
		return raw, 0, &NetworkError{Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	startedAt := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return raw, 0, c.classify(reqCtx, err, delay)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		elapsed := time.Since(startedAt)
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return raw, 0, &HTTPError{Status: resp.StatusCode, Elapsed: elapsed}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return raw, 0, c.classify(reqCtx, errors.Wrap(err, "decode response"), delay)
	}
	return raw, time.Since(startedAt), nil
}

// classify maps a request error to Timeout or NetworkError.
func (c *Client) classify(reqCtx context.Context, err error, delay time.Duration) Failure {
	if ctxErr := reqCtx.Err(); ctxErr != nil {
		return &TimeoutError{Estimate: c.timeout + delay, Err: ctxErr}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Estimate: c.timeout + delay, Err: err}
	}
	return &NetworkError{Err: err}
}

func (c *Client) searchURL(query string) string {
	if query == "" {
		query = c.fallback
	}
	return c.endpoint + "?q=" + url.QueryEscape(query)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
