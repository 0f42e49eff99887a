// Package cache holds the detection and nutrition caches and the store
// contract their persistent layer is written against.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go-meal-analyzer/pkg/models"
)

// ErrNotFound is returned by stores when a key is absent.
var ErrNotFound = errors.New("cache entry not found")

// Clock returns the current time. Tests swap it for a fixed clock.
type Clock func() time.Time

// Hash returns the hex SHA-256 of raw image bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ImageAnalysisEntry is a cached detection result keyed by image hash.
type ImageAnalysisEntry struct {
	Hash      string
	Result    models.FoodDetectionResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NutritionEntry is a cached provider match keyed by normalized query.
type NutritionEntry struct {
	QueryKey  string
	Match     models.NutritionMatch
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its TTL at now.
func (e ImageAnalysisEntry) Expired(now time.Time) bool { return !now.Before(e.ExpiresAt) }

// Expired reports whether the entry is past its TTL at now.
func (e NutritionEntry) Expired(now time.Time) bool { return !now.Before(e.ExpiresAt) }

// Store is the persistent layer. Puts are upserts; Gets return ErrNotFound
// for missing keys and do not filter expired rows.
type Store interface {
	GetImageAnalysis(ctx context.Context, hash string) (*ImageAnalysisEntry, error)
	PutImageAnalysis(ctx context.Context, e ImageAnalysisEntry) error
	DeleteImageAnalysis(ctx context.Context, hash string) error
	GetNutrition(ctx context.Context, key string) (*NutritionEntry, error)
	PutNutrition(ctx context.Context, e NutritionEntry) error
	DeleteNutrition(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (CleanResult, error)
	Close() error
}

// CleanResult counts rows removed by DeleteExpired.
type CleanResult struct {
	ImageAnalysisDeleted int64
	NutritionDeleted     int64
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.RWMutex
	images    map[string]ImageAnalysisEntry
	nutrition map[string]NutritionEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		images:    make(map[string]ImageAnalysisEntry),
		nutrition: make(map[string]NutritionEntry),
	}
}

func (m *MemoryStore) GetImageAnalysis(_ context.Context, hash string) (*ImageAnalysisEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.images[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) PutImageAnalysis(_ context.Context, e ImageAnalysisEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[e.Hash] = e
	return nil
}

func (m *MemoryStore) DeleteImageAnalysis(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, hash)
	return nil
}

func (m *MemoryStore) GetNutrition(_ context.Context, key string) (*NutritionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.nutrition[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) PutNutrition(_ context.Context, e NutritionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nutrition[e.QueryKey] = e
	return nil
}

func (m *MemoryStore) DeleteNutrition(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nutrition, key)
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (CleanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res CleanResult
	for k, e := range m.images {
		if e.Expired(now) {
			delete(m.images, k)
			res.ImageAnalysisDeleted++
		}
	}
	for k, e := range m.nutrition {
		if e.Expired(now) {
			delete(m.nutrition, k)
			res.NutritionDeleted++
		}
	}
	return res, nil
}

func (m *MemoryStore) Close() error { return nil }

// CleanExpired removes every expired row from s.
func CleanExpired(ctx context.Context, s Store, now time.Time) (CleanResult, error) {
	return s.DeleteExpired(ctx, now)
}
