package storage

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "go-meal-analyzer/internal/errors"
)

// Valid minimal PNG data for 1x1 transparent pixel
var pngData = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, // 1x1 dimensions
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, // bit depth, color type, etc.
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41, // IDAT chunk start
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00, // compressed data
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, // compressed data end
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, // IEND chunk
	0x42, 0x60, 0x82,
}

type allowAll struct{ calls int }

func (a *allowAll) ValidateImageURL(string) error {
	a.calls++
	return nil
}

type rejectPath struct{ path string }

func (r rejectPath) ValidateImageURL(u string) error {
	if strings.Contains(u, r.path) {
		return apperrors.NewURLNotAllowedError("URL host not allowed", nil)
	}
	return nil
}

func allowLoopback(net.IP) bool { return false }

func newTestFetcher(checker URLChecker, opts ...HTTPOption) *HTTPPhotoFetcher {
	base := []HTTPOption{WithAddressFilter(allowLoopback), WithRetryBackoff(time.Millisecond)}
	return NewHTTPPhotoFetcher(checker, append(base, opts...)...)
}

func TestHTTPPhotoFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 404},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "204 no content - no retry",
			responses:     []int{204},
			expectRetries: 1,
			expectError:   true,
			errorContains: "unexpected status code 204",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestCount := 0

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if requestCount >= len(tt.responses) {
					w.WriteHeader(500)
					return
				}
				statusCode := tt.responses[requestCount]
				requestCount++
				if statusCode == 200 {
					w.Header().Set("Content-Type", "image/png")
					w.Write(pngData)
					return
				}
				w.WriteHeader(statusCode)
				w.Write([]byte(fmt.Sprintf("Error %d", statusCode)))
			}))
			defer server.Close()

			photo, err := newTestFetcher(nil).Fetch(context.Background(), server.URL)

			if requestCount != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, requestCount)
			}

			if tt.expectError {
				if err == nil {
					t.Fatalf("Expected error, but got none")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
				if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
					t.Errorf("Expected network error, got %T %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %s", err.Error())
			}
			if photo.ContentType != "image/png" || len(photo.Data) != len(pngData) {
				t.Errorf("unexpected photo: type=%s len=%d", photo.ContentType, len(photo.Data))
			}
		})
	}
}

func TestHTTPPhotoFetcher_SizeLimits(t *testing.T) {
	t.Run("declared length over limit is rejected before reading", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData)
		}))
		defer server.Close()

		_, err := newTestFetcher(nil, WithMaxBytes(32)).Fetch(context.Background(), server.URL)
		if !apperrors.IsType(err, apperrors.ErrorTypePayloadTooLarge) {
			t.Fatalf("Expected payload too large, got %v", err)
		}
		if !strings.Contains(err.Error(), "limit is 32") {
			t.Errorf("Expected header check message, got %v", err)
		}
	})

	t.Run("chunked body over limit is caught after download", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData[:20])
			w.(http.Flusher).Flush()
			w.Write(pngData[20:])
		}))
		defer server.Close()

		_, err := newTestFetcher(nil, WithMaxBytes(32)).Fetch(context.Background(), server.URL)
		if !apperrors.IsType(err, apperrors.ErrorTypePayloadTooLarge) {
			t.Fatalf("Expected payload too large, got %v", err)
		}
		if !strings.Contains(err.Error(), "exceeds limit") {
			t.Errorf("Expected post-download check message, got %v", err)
		}
	})
}

func TestHTTPPhotoFetcher_ContentTypes(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        string
		wantErr     bool
	}{
		{"png", "image/png", pngData, "image/png", false},
		{"jpeg with params", "image/jpeg; charset=binary", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10}, "image/jpeg", false},
		{"octet stream sniffed", "application/octet-stream", pngData, "image/png", false},
		{"heic sniffed", "application/octet-stream", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), "image/heic", false},
		{"html rejected", "text/html", []byte("<html></html>"), "", true},
		{"gif rejected", "image/gif", []byte("GIF89a"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write(tt.body)
			}))
			defer server.Close()

			photo, err := newTestFetcher(nil).Fetch(context.Background(), server.URL)
			if tt.wantErr {
				if !apperrors.IsType(err, apperrors.ErrorTypeUnsupportedMedia) {
					t.Fatalf("Expected unsupported media error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if photo.ContentType != tt.want {
				t.Errorf("ContentType = %s, want %s", photo.ContentType, tt.want)
			}
		})
	}
}

func TestHTTPPhotoFetcher_Redirects(t *testing.T) {
	t.Run("redirect targets are re-validated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/start" {
				http.Redirect(w, r, "/internal/secret", http.StatusFound)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData)
		}))
		defer server.Close()

		_, err := newTestFetcher(rejectPath{path: "/internal/"}).Fetch(context.Background(), server.URL+"/start")
		appErr, ok := apperrors.As(err)
		if !ok {
			t.Fatalf("Expected AppError, got %v", err)
		}
		if appErr.Reason != apperrors.ReasonPhotoURLNotAllowed {
			t.Errorf("Expected reason %s, got %s", apperrors.ReasonPhotoURLNotAllowed, appErr.Reason)
		}
	})

	t.Run("redirect chain is capped at three hops", func(t *testing.T) {
		hops := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hops++
			http.Redirect(w, r, fmt.Sprintf("/hop%d", hops), http.StatusFound)
		}))
		defer server.Close()

		checker := &allowAll{}
		_, err := newTestFetcher(checker).Fetch(context.Background(), server.URL)
		if err == nil || !strings.Contains(err.Error(), "too many redirects") {
			t.Fatalf("Expected redirect limit failure, got %v", err)
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
			t.Errorf("Expected network error, got %v", err)
		}
		if checker.calls != 3 {
			t.Errorf("Expected 3 redirect targets checked, got %d", checker.calls)
		}
		// initial request plus three followed hops, no retry
		if hops != 4 {
			t.Errorf("Expected 4 requests, got %d", hops)
		}
	})
}

func TestHTTPPhotoFetcher_DialerRefusesLoopback(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	fetcher := NewHTTPPhotoFetcher(nil, WithRetryBackoff(time.Millisecond))
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected loopback dial to be refused")
	}
	if requestCount != 0 {
		t.Errorf("Expected no request to reach the server, got %d", requestCount)
	}
	if !strings.Contains(err.Error(), "refusing to connect") {
		t.Errorf("Expected dialer refusal in error chain, got %v", err)
	}
}

func TestHTTPPhotoFetcher_NetworkError_Retry(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	start := time.Now()
	_, err := newTestFetcher(nil, WithRetryBackoff(20*time.Millisecond)).Fetch(context.Background(), server.URL)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	// 20ms + 40ms of backoff
	if duration < 60*time.Millisecond {
		t.Errorf("Expected at least 60ms due to backoff, took %v", duration)
	}
}
