package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-meal-analyzer/internal/analyzer"
	"go-meal-analyzer/internal/cache"
	"go-meal-analyzer/internal/config"
	"go-meal-analyzer/internal/detector"
	"go-meal-analyzer/internal/factory"
	"go-meal-analyzer/internal/followup"
	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/internal/nutrition"
	"go-meal-analyzer/internal/observer"
	"go-meal-analyzer/internal/repository"
	"go-meal-analyzer/internal/service"
	"go-meal-analyzer/internal/transport"
	"go-meal-analyzer/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	store           cache.Store
	visionModel     *detector.GeminiModel
	photoRepository repository.PhotoRepository
	mealService     service.MealAnalysisService
	metrics         *observer.MetricsObserver
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg.GoogleProjectID == "" {
		return nil, errors.New("GOOGLE_PROJECT_ID is required")
	}

	validator := validation.NewURLValidator(cfg.TrustedPhotoHosts)
	components := factory.NewComponentFactory(cfg, validator)

	store, err := components.StoreFactory.CreateStore(cfg.CacheDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	photoRepository, err := buildPhotoRepository(ctx, components.StorageFactory, validator)
	if err != nil {
		store.Close()
		return nil, err
	}

	visionModel, err := detector.NewGeminiModel(ctx, detector.GeminiConfig{
		ProjectID:       cfg.GoogleProjectID,
		Location:        cfg.GoogleLocation,
		CredentialsFile: cfg.GoogleCredentialsFile,
		Model:           cfg.VisionModel,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize vision model: %w", err)
	}

	nutritionCache := cache.NewNutritionCache(store, cfg.NutritionCacheTTL, nil)
	resolver := nutrition.NewResolver(buildStrategies(cfg, components.ProviderFactory, nutritionCache)...)

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	mealService := service.NewMealAnalysisService(service.Dependencies{
		Photos:   photoRepository,
		Detector: detector.New(visionModel, cfg.AnalysisTimeout),
		Detections: cache.NewDetectionCache(store,
			cache.WithDetectionTTL(cfg.DetectionCacheTTL),
			cache.WithMemoryTTL(cfg.DetectionMemoryTTL),
		),
		Resolver:  resolver,
		Quality:   analyzer.NewQualityAnalyzer(analyzer.DefaultOptions()),
		Publisher: publisher,
		Store:     store,
	}, service.Options{
		MaxItems:  cfg.MaxItems,
		BatchSize: cfg.LookupBatchSize,
		Thresholds: followup.Thresholds{
			Detection: cfg.DetectionConfidenceThreshold,
			Portion:   cfg.PortionConfidenceThreshold,
		},
	})

	handler := transport.NewHandler(mealService, metrics, cfg)

	return &Container{
		config:          cfg,
		store:           store,
		visionModel:     visionModel,
		photoRepository: photoRepository,
		mealService:     mealService,
		metrics:         metrics,
		handler:         handler,
	}, nil
}

// buildPhotoRepository routes Azure and S3 hosts to their SDK fetchers when
// configured and everything else to the HTTPS fetcher.
func buildPhotoRepository(ctx context.Context, storages factory.StorageFactory, validator *validation.URLValidator) (repository.PhotoRepository, error) {
	fallback, err := storages.CreateStorage(ctx, factory.HTTPStorage)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo fetcher: %w", err)
	}

	var routed []repository.HostFetcher
	for _, st := range []factory.StorageType{factory.AzureStorage, factory.S3Storage} {
		fetcher, err := storages.CreateStorage(ctx, st)
		if errors.Is(err, factory.ErrNotConfigured) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s photo fetcher: %w", st, err)
		}
		if hf, ok := fetcher.(repository.HostFetcher); ok {
			routed = append(routed, hf)
			logger.WithField("storage", st).Info("Photo storage route enabled")
		}
	}

	return repository.NewPhotoRepository(validator, fallback, routed...), nil
}

// buildStrategies orders the cascade primary, secondary, fallback. Missing
// credentials drop a tier with a warning.
func buildStrategies(cfg *config.Config, providers factory.ProviderFactory, matches nutrition.MatchCache) []nutrition.Strategy {
	var strategies []nutrition.Strategy

	if primary, err := providers.CreatePrimary(); err == nil {
		strategies = append(strategies, nutrition.NewPrimaryStrategy(primary, matches))
	} else {
		logger.WithError(err).Warn("Primary nutrition provider disabled")
	}

	if secondary, err := providers.CreateSecondary(cfg.SecondaryProvider); err == nil {
		strategies = append(strategies, nutrition.NewSecondaryStrategy(secondary, matches))
	} else {
		logger.WithError(err).Warn("Secondary nutrition provider disabled")
	}

	return append(strategies, nutrition.FallbackStrategy{})
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the vision client and the cache store
func (c *Container) Close() error {
	return errors.Join(c.visionModel.Close(), c.store.Close())
}
