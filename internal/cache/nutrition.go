package cache

import (
	"context"
	"errors"
	"time"

	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/pkg/models"
)

// DefaultNutritionTTL is how long a per-query provider match is reused.
const DefaultNutritionTTL = 24 * time.Hour

// NutritionCache caches provider matches and misses per normalized query.
type NutritionCache struct {
	store Store
	ttl   time.Duration
	now   Clock
}

func NewNutritionCache(store Store, ttl time.Duration, now Clock) *NutritionCache {
	if ttl <= 0 {
		ttl = DefaultNutritionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &NutritionCache{store: store, ttl: ttl, now: now}
}

func (c *NutritionCache) GetNutrition(ctx context.Context, key string) (*models.NutritionMatch, bool) {
	log := logger.FromContext(ctx).WithField("query_key", key)
	entry, err := c.store.GetNutrition(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.WithError(err).Warn("Nutrition cache read failed")
		}
		return nil, false
	}
	if entry.Expired(c.now()) {
		if err := c.store.DeleteNutrition(ctx, key); err != nil {
			log.WithError(err).Warn("Failed to delete expired nutrition cache entry")
		}
		return nil, false
	}
	m := entry.Match
	return &m, true
}

func (c *NutritionCache) PutNutrition(ctx context.Context, key string, m models.NutritionMatch) {
	now := c.now()
	err := c.store.PutNutrition(ctx, NutritionEntry{
		QueryKey:  key,
		Match:     m,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField("query_key", key).Warn("Nutrition cache write failed")
	}
}
