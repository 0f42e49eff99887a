package repository

import (
	"context"
	"net/url"

	apperrors "go-meal-analyzer/internal/errors"
	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/internal/storage"
)

// URLValidator is satisfied by validation.URLValidator.
type URLValidator interface {
	ValidateImageURL(photoURL string) error
}

// HostFetcher is a fetcher bound to specific hosts, such as one Azure
// storage account or S3.
type HostFetcher interface {
	storage.PhotoFetcher
	Handles(u *url.URL) bool
}

// StoragePhotoRepository routes validated photo URLs to the credentialed
// cloud fetchers first and the hardened HTTPS fetcher otherwise.
type StoragePhotoRepository struct {
	validator URLValidator
	fallback  storage.PhotoFetcher
	routed    []HostFetcher
}

// NewPhotoRepository creates a repository; routed fetchers are consulted in order.
func NewPhotoRepository(validator URLValidator, fallback storage.PhotoFetcher, routed ...HostFetcher) *StoragePhotoRepository {
	return &StoragePhotoRepository{
		validator: validator,
		fallback:  fallback,
		routed:    routed,
	}
}

func (r *StoragePhotoRepository) ValidatePhotoURL(photoURL string) error {
	return r.validator.ValidateImageURL(photoURL)
}

func (r *StoragePhotoRepository) FetchPhoto(ctx context.Context, photoURL string) (*storage.Photo, error) {
	if err := r.validator.ValidateImageURL(photoURL); err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(photoURL)
	if err != nil {
		return nil, apperrors.NewURLNotAllowedError("Invalid URL format", err)
	}

	fetcher := r.fallback
	for _, f := range r.routed {
		if f.Handles(parsedURL) {
			fetcher = f
			break
		}
	}
	if fetcher == nil {
		return nil, apperrors.NewInternalError("photo storage unavailable", ErrNoFetcher)
	}

	photo, err := fetcher.Fetch(ctx, photoURL)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField("host", parsedURL.Hostname()).Warn("Photo fetch failed")
		return nil, err
	}
	return photo, nil
}

var _ PhotoRepository = (*StoragePhotoRepository)(nil)
