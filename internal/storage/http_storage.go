package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	apperrors "go-meal-analyzer/internal/errors"
	"go-meal-analyzer/pkg/validation"
)

// URLChecker re-validates redirect targets.
type URLChecker interface {
	ValidateImageURL(photoURL string) error
}

// HTTPPhotoFetcher downloads photos over HTTPS with SSRF guards at the
// dialer and on every redirect.
type HTTPPhotoFetcher struct {
	client   *http.Client
	maxBytes int64
	backoff  time.Duration
}

type httpFetcherConfig struct {
	timeout  time.Duration
	maxBytes int64
	backoff  time.Duration
	blocked  func(net.IP) bool
}

// HTTPOption configures an HTTPPhotoFetcher.
type HTTPOption func(*httpFetcherConfig)

// WithFetchTimeout bounds a whole download including retries of a single attempt.
func WithFetchTimeout(d time.Duration) HTTPOption {
	return func(c *httpFetcherConfig) { c.timeout = d }
}

// WithMaxBytes overrides DefaultMaxPhotoBytes.
func WithMaxBytes(n int64) HTTPOption {
	return func(c *httpFetcherConfig) { c.maxBytes = n }
}

// WithRetryBackoff sets the base delay between attempts.
func WithRetryBackoff(d time.Duration) HTTPOption {
	return func(c *httpFetcherConfig) { c.backoff = d }
}

// WithAddressFilter replaces the dial-time address check.
func WithAddressFilter(blocked func(net.IP) bool) HTTPOption {
	return func(c *httpFetcherConfig) { c.blocked = blocked }
}

// NewHTTPPhotoFetcher creates the HTTPS photo fetcher. checker runs against
// each redirect target; the dialer refuses private addresses after DNS
// resolution so a trusted name cannot be rebound to an internal host.
func NewHTTPPhotoFetcher(checker URLChecker, opts ...HTTPOption) *HTTPPhotoFetcher {
	cfg := httpFetcherConfig{
		timeout:  30 * time.Second,
		maxBytes: DefaultMaxPhotoBytes,
		backoff:  time.Second,
		blocked:  validation.IsBlockedIP,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip := net.ParseIP(host)
			if ip == nil || cfg.blocked(ip) {
				return fmt.Errorf("refusing to connect to %s", host)
			}
			return nil
		},
	}

	transport := &http.Transport{
		Proxy:                  nil,
		DialContext:            dialer.DialContext,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 8192,
	}

	return &HTTPPhotoFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > 3 {
					return errTooManyRedirects
				}
				if checker != nil {
					if err := checker.ValidateImageURL(req.URL.String()); err != nil {
						return fmt.Errorf("redirect target rejected: %w", err)
					}
				}
				return nil
			},
		},
		maxBytes: cfg.maxBytes,
		backoff:  cfg.backoff,
	}
}

var errTooManyRedirects = errors.New("too many redirects (limit: 3)")

func (h *HTTPPhotoFetcher) Fetch(ctx context.Context, photoURL string) (*Photo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, apperrors.NewURLNotAllowedError("Invalid URL format", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/heic, image/heif")
	req.Header.Set("User-Agent", "Go-Meal-Analyzer/1.0")

	// Retry logic (3 attempts) - only retry on transient errors
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err = h.client.Do(req)
		if err != nil {
			// on a rejected redirect Do returns the redirect response with
			// its body already closed
			resp = nil
			lastErr = err
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) || errors.Is(err, errTooManyRedirects) || ctx.Err() != nil {
				break
			}
		} else if resp.StatusCode == http.StatusOK {
			break
		} else {
			resp.Body.Close()
			status := resp.StatusCode
			resp = nil
			if status < 500 {
				if status >= 400 {
					lastErr = fmt.Errorf("client error: status code %d", status)
				} else {
					lastErr = fmt.Errorf("unexpected status code %d", status)
				}
				break
			}
			lastErr = fmt.Errorf("server error: status code %d", status)
		}

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewTimeoutError("photo fetch timed out", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	if resp == nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewTimeoutError("photo fetch timed out", ctx.Err())
		}
		if appErr, ok := apperrors.As(lastErr); ok {
			return nil, appErr
		}
		return nil, apperrors.NewNetworkError("failed to fetch photo", lastErr)
	}
	defer resp.Body.Close()

	if err := checkDeclaredSize(resp.ContentLength, h.maxBytes); err != nil {
		return nil, err
	}
	data, err := readLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, err
	}
	contentType, err := resolveContentType(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}
	return &Photo{Data: data, ContentType: contentType, Source: "https"}, nil
}
