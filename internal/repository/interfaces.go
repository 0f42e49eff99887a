package repository

import (
	"context"

	"go-meal-analyzer/internal/storage"
)

// PhotoRepository defines the interface for meal photo access
type PhotoRepository interface {
	// ValidatePhotoURL runs the SSRF rules without touching the network
	ValidatePhotoURL(photoURL string) error

	// FetchPhoto validates the URL and downloads the photo through the
	// fetcher that owns its host
	FetchPhoto(ctx context.Context, photoURL string) (*storage.Photo, error)
}
