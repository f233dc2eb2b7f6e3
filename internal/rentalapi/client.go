// Package rentalapi is the client for the rental backend's REST list
// endpoints. It decodes each endpoint's payload into a typed variant
// (Fleet, Product, Inspection, Maintenance), caches raw pages in Redis and
// collapses identical concurrent requests.
package rentalapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// maxBodyBytes bounds how much of a list response is read.
const maxBodyBytes = 8 << 20

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rental api %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Lister fetches one page of entities. The timeline coordinator depends on
// this interface rather than on *Client.
type Lister interface {
	List(ctx context.Context, q ListQuery) (ListResult, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache enables the page cache with the given TTL. A zero TTL disables it.
func WithCache(cache PageCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithServiceToken sets the token used when the request context carries none.
func WithServiceToken(token string) Option {
	return func(c *Client) { c.serviceToken = token }
}

// Client talks to the rental backend.
type Client struct {
	baseURL      string
	http         *http.Client
	serviceToken string
	cache        PageCache
	cacheTTL     time.Duration
	group        singleflight.Group
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenKey struct{}

// WithToken returns a context whose requests are sent with the caller's
// bearer token instead of the service token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) tokenFrom(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok && tok != "" {
		return tok
	}
	return c.serviceToken
}

// List fetches and decodes one page of q.Endpoint.
func (c *Client) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if !q.Endpoint.Valid() {
		return ListResult{}, fmt.Errorf("unknown endpoint %q", q.Endpoint)
	}
	u := c.baseURL + "/" + string(q.Endpoint) + "?" + q.Values().Encode()
	body, err := c.fetch(ctx, u)
	if err != nil {
		return ListResult{}, err
	}
	return decodePage(q.Endpoint, body, q)
}

// fetch returns the raw body for u, consulting the cache first. Concurrent
// calls for the same URL and token share one upstream request.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	token := c.tokenFrom(ctx)
	key := cacheKey(u, token)

	if c.cache != nil && c.cacheTTL > 0 {
		body, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("page cache read failed", slog.Any("error", err))
		} else if ok {
			return body, nil
		}
	}

	// The shared request outlives any one caller; each caller stops waiting
	// when its own context ends.
	ch := c.group.DoChan(key, func() (any, error) {
		return c.get(context.WithoutCancel(ctx), u, token)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	body := res.Val.([]byte)

	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			slog.Warn("page cache write failed", slog.Any("error", err))
		}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, u, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}

	slog.Debug("rental api request",
		slog.String("url", u),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u, Body: snippet}
	}
	return body, nil
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend.
func IsUnauthorized(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
	}
	return false
}
