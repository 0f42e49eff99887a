package repository

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	apperrors "go-meal-analyzer/internal/errors"
	"go-meal-analyzer/internal/storage"
	"go-meal-analyzer/pkg/validation"
)

type recordingFetcher struct {
	name   string
	suffix string
	calls  []string
}

func (f *recordingFetcher) Fetch(_ context.Context, photoURL string) (*storage.Photo, error) {
	f.calls = append(f.calls, photoURL)
	return &storage.Photo{Data: []byte("x"), ContentType: "image/png", Source: f.name}, nil
}

func (f *recordingFetcher) Handles(u *url.URL) bool {
	return strings.HasSuffix(u.Hostname(), f.suffix)
}

func TestPhotoRepository_Routing(t *testing.T) {
	validator := validation.NewURLValidator([]string{".blob.core.windows.net", ".amazonaws.com", "storage.googleapis.com"})
	httpsFetcher := &recordingFetcher{name: "https"}
	azure := &recordingFetcher{name: "azure", suffix: "meals.blob.core.windows.net"}
	s3 := &recordingFetcher{name: "s3", suffix: ".amazonaws.com"}

	repo := NewPhotoRepository(validator, httpsFetcher, azure, s3)

	tests := []struct {
		url    string
		source string
	}{
		{"https://meals.blob.core.windows.net/uploads/a.jpg", "azure"},
		{"https://other.blob.core.windows.net/uploads/a.jpg", "https"},
		{"https://bucket.s3.us-east-1.amazonaws.com/a.jpg", "s3"},
		{"https://storage.googleapis.com/bucket/a.jpg", "https"},
	}

	for _, tt := range tests {
		photo, err := repo.FetchPhoto(context.Background(), tt.url)
		if err != nil {
			t.Fatalf("FetchPhoto(%s) error = %v", tt.url, err)
		}
		if photo.Source != tt.source {
			t.Errorf("FetchPhoto(%s) routed to %s, want %s", tt.url, photo.Source, tt.source)
		}
	}
}

func TestPhotoRepository_RejectsBeforeFetching(t *testing.T) {
	validator := validation.NewURLValidator([]string{".blob.core.windows.net"})
	fetcher := &recordingFetcher{name: "https"}
	repo := NewPhotoRepository(validator, fetcher)

	for _, u := range []string{
		"https://127.0.0.1/a.jpg",
		"https://169.254.169.254/latest/meta-data/",
		"https://10.0.0.5/a.jpg",
		"http://meals.blob.core.windows.net/a.jpg",
	} {
		_, err := repo.FetchPhoto(context.Background(), u)
		appErr, ok := apperrors.As(err)
		if !ok || appErr.Reason != apperrors.ReasonPhotoURLNotAllowed {
			t.Errorf("FetchPhoto(%s) error = %v, want photo_url_not_allowed", u, err)
		}
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("Expected no fetches, got %v", fetcher.calls)
	}
}

func TestPhotoRepository_NoFetcher(t *testing.T) {
	repo := NewPhotoRepository(validation.NewURLValidator(nil), nil)
	_, err := repo.FetchPhoto(context.Background(), "https://cdn.example.com/a.jpg")
	if !errors.Is(err, ErrNoFetcher) {
		t.Errorf("Expected ErrNoFetcher, got %v", err)
	}
}
