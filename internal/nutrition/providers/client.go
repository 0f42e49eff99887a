// Package providers adapts remote nutrition databases to nutrition.Provider.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxResponseBytes = 4 << 20
	maxAttempts      = 3
	userAgent        = "go-meal-analyzer/1.0"
)

// Option configures a provider adapter.
type Option func(*apiClient)

// WithTokenURL overrides the OAuth2 token endpoint.
func WithTokenURL(u string) Option {
	return func(c *apiClient) { c.tokenURL = u }
}

// WithBaseURL points the adapter at a different API root.
func WithBaseURL(u string) Option {
	return func(c *apiClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) { c.http = hc }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *apiClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
		}
	}
}

// WithBackoff sets the base delay between retries of 5xx responses.
func WithBackoff(d time.Duration) Option {
	return func(c *apiClient) { c.backoff = d }
}

// apiClient is the shared JSON GET client with rate limiting and retries.
type apiClient struct {
	name     string
	baseURL  string
	tokenURL string
	http     *http.Client
	limiter  *rate.Limiter
	backoff  time.Duration
}

func newAPIClient(name, baseURL string, opts []Option) *apiClient {
	c := &apiClient{
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		backoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON issues a GET and decodes the body into out. 4xx responses are not
// retried; 5xx and transport errors are retried up to maxAttempts.
func (c *apiClient) getJSON(ctx context.Context, hc *http.Client, rawURL string, out interface{}) error {
	if hc == nil {
		hc = c.http
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s rate limiter: %w", c.name, err)
		}

		body, status, err := c.do(ctx, hc, rawURL)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}
		if status >= 400 && status < 500 {
			return fmt.Errorf("%s client error: status code %d", c.name, status)
		}
		if status >= 500 {
			lastErr = fmt.Errorf("%s server error: status code %d", c.name, status)
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s malformed response: %w", c.name, err)
		}
		return nil
	}
	return fmt.Errorf("%s request failed after %d attempts: %w", c.name, maxAttempts, lastErr)
}

func (c *apiClient) do(ctx context.Context, hc *http.Client, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%s invalid request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("%s read body: %w", c.name, err)
	}
	return body, resp.StatusCode, nil
}

// flexFloat decodes numbers that some APIs send as strings.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = flexFloat{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = flexFloat{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q", s)
		}
		*f = flexFloat{Value: v, Set: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat{Value: v, Set: true}
	return nil
}

// ptr returns the value as a nutrient pointer, or nil when absent.
func (f flexFloat) ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// oneOrMany decodes either a single JSON object or an array of them.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*o = nil
		return nil
	}
	if b[0] == '[' {
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*o = []T{one}
	return nil
}
