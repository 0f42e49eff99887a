package factory

import (
	"context"
	"errors"
	"fmt"

	"go-meal-analyzer/internal/cache"
	"go-meal-analyzer/internal/config"
	"go-meal-analyzer/internal/database"
	"go-meal-analyzer/internal/nutrition"
	"go-meal-analyzer/internal/nutrition/providers"
	"go-meal-analyzer/internal/storage"
)

// ErrNotConfigured is returned for components whose credentials are absent.
var ErrNotConfigured = errors.New("component not configured")

// StorageType represents different types of photo storage backends
type StorageType string

const (
	// HTTPStorage for hardened HTTPS fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// S3Storage for AWS S3
	S3Storage StorageType = "s3"
)

// StoreFactory creates the persistent cache layer
type StoreFactory interface {
	CreateStore(driver string) (cache.Store, error)
}

// ProviderFactory creates nutrition provider adapters
type ProviderFactory interface {
	CreatePrimary() (nutrition.Provider, error)
	CreateSecondary(kind string) (nutrition.Provider, error)
}

// StorageFactory creates photo fetchers
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.PhotoFetcher, error)
}

// storeFactory implements StoreFactory
type storeFactory struct {
	cfg *config.Config
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config) StoreFactory {
	return &storeFactory{cfg: cfg}
}

// CreateStore opens the store for the given CACHE_DRIVER value
func (f *storeFactory) CreateStore(driver string) (cache.Store, error) {
	switch driver {
	case config.CacheDriverMemory:
		return cache.NewMemoryStore(), nil
	case config.CacheDriverSQLite:
		store, err := database.NewSQLiteStore(f.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CacheDriverPostgres:
		store, err := database.OpenPostgres(f.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", driver)
	}
}

// providerFactory implements ProviderFactory
type providerFactory struct {
	cfg *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) ProviderFactory {
	return &providerFactory{cfg: cfg}
}

// CreatePrimary creates the FatSecret adapter
func (f *providerFactory) CreatePrimary() (nutrition.Provider, error) {
	if f.cfg.FatSecretClientID == "" || f.cfg.FatSecretClientSecret == "" {
		return nil, fmt.Errorf("fatsecret: %w", ErrNotConfigured)
	}
	return providers.NewFatSecret(f.cfg.FatSecretClientID, f.cfg.FatSecretClientSecret,
		providers.WithRateLimit(f.cfg.ProviderRPS)), nil
}

// CreateSecondary creates the USDA or Edamam adapter
func (f *providerFactory) CreateSecondary(kind string) (nutrition.Provider, error) {
	switch kind {
	case config.SecondaryUSDA:
		if f.cfg.USDAAPIKey == "" {
			return nil, fmt.Errorf("usda: %w", ErrNotConfigured)
		}
		return providers.NewUSDA(f.cfg.USDAAPIKey, providers.WithRateLimit(f.cfg.ProviderRPS)), nil
	case config.SecondaryEdamam:
		if f.cfg.EdamamAppID == "" || f.cfg.EdamamAppKey == "" {
			return nil, fmt.Errorf("edamam: %w", ErrNotConfigured)
		}
		return providers.NewEdamam(f.cfg.EdamamAppID, f.cfg.EdamamAppKey, providers.WithRateLimit(f.cfg.ProviderRPS)), nil
	default:
		return nil, fmt.Errorf("unsupported secondary provider: %s", kind)
	}
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg     *config.Config
	checker storage.URLChecker
}

// NewStorageFactory creates a new storage factory. checker re-validates
// redirect targets of the HTTPS fetcher.
func NewStorageFactory(cfg *config.Config, checker storage.URLChecker) StorageFactory {
	return &storageFactory{cfg: cfg, checker: checker}
}

// CreateStorage creates a fetcher based on the specified type
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.PhotoFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPPhotoFetcher(f.checker,
			storage.WithFetchTimeout(f.cfg.ImageFetchTimeout),
			storage.WithMaxBytes(f.cfg.MaxImageBytes),
		), nil
	case AzureStorage:
		if f.cfg.AzureStorageAccount == "" || f.cfg.AzureStorageKey == "" {
			return nil, fmt.Errorf("azure storage: %w", ErrNotConfigured)
		}
		fetcher, err := storage.NewAzurePhotoFetcher(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.MaxImageBytes)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case S3Storage:
		if !f.cfg.S3FetchEnabled {
			return nil, fmt.Errorf("s3 storage: %w", ErrNotConfigured)
		}
		fetcher, err := storage.NewS3PhotoFetcher(ctx, f.cfg.AWSRegion, f.cfg.MaxImageBytes)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StoreFactory    StoreFactory
	ProviderFactory ProviderFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config, checker storage.URLChecker) *ComponentFactory {
	return &ComponentFactory{
		StoreFactory:    NewStoreFactory(cfg),
		ProviderFactory: NewProviderFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg, checker),
	}
}
