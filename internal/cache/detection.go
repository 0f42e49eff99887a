package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/pkg/models"

	"github.com/sirupsen/logrus"
)

// Detection cache defaults.
const (
	DefaultDetectionTTL       = 10 * time.Minute
	DefaultDetectionMemoryTTL = 60 * time.Second
	DefaultMemoryMaxEntries   = 100
	DefaultMemoryEvictCount   = 20
)

type memEntry struct {
	result   models.FoodDetectionResult
	storedAt time.Time
}

// DetectionCache is a two-layer cache of detection results: a short-lived
// in-process map in front of a persistent Store. Failures are logged and
// never returned.
type DetectionCache struct {
	store      Store
	ttl        time.Duration
	memTTL     time.Duration
	maxEntries int
	evictCount int
	now        Clock

	mu  sync.Mutex
	mem map[string]memEntry
}

// DetectionOption configures a DetectionCache.
type DetectionOption func(*DetectionCache)

func WithDetectionTTL(d time.Duration) DetectionOption {
	return func(c *DetectionCache) { c.ttl = d }
}

func WithMemoryTTL(d time.Duration) DetectionOption {
	return func(c *DetectionCache) { c.memTTL = d }
}

// WithMemoryLimit sets the in-process capacity and how many of the oldest
// entries are dropped when it is exceeded.
func WithMemoryLimit(maxEntries, evict int) DetectionOption {
	return func(c *DetectionCache) {
		c.maxEntries = maxEntries
		c.evictCount = evict
	}
}

func WithDetectionClock(now Clock) DetectionOption {
	return func(c *DetectionCache) { c.now = now }
}

func NewDetectionCache(store Store, opts ...DetectionOption) *DetectionCache {
	c := &DetectionCache{
		store:      store,
		ttl:        DefaultDetectionTTL,
		memTTL:     DefaultDetectionMemoryTTL,
		maxEntries: DefaultMemoryMaxEntries,
		evictCount: DefaultMemoryEvictCount,
		now:        time.Now,
		mem:        make(map[string]memEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get checks the in-process layer and then the store. An expired store row
// is deleted by the read that finds it.
func (c *DetectionCache) Get(ctx context.Context, hash string) (*models.FoodDetectionResult, bool) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.mem[hash]; ok {
		if now.Sub(e.storedAt) < c.memTTL {
			c.mu.Unlock()
			res := copyResult(e.result)
			return &res, true
		}
		delete(c.mem, hash)
	}
	c.mu.Unlock()

	if c.store == nil {
		return nil, false
	}
	log := logger.FromContext(ctx).WithField("image_hash", hash)
	entry, err := c.store.GetImageAnalysis(ctx, hash)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.WithError(err).Warn("Detection cache read failed")
		}
		return nil, false
	}
	if entry.Expired(now) {
		if err := c.store.DeleteImageAnalysis(ctx, hash); err != nil {
			log.WithError(err).Warn("Failed to delete expired detection cache entry")
		}
		return nil, false
	}

	c.remember(hash, entry.Result, now)
	res := copyResult(entry.Result)
	return &res, true
}

// Put writes to both layers.
func (c *DetectionCache) Put(ctx context.Context, hash string, result models.FoodDetectionResult) {
	now := c.now()
	c.remember(hash, result, now)

	if c.store == nil {
		return
	}
	err := c.store.PutImageAnalysis(ctx, ImageAnalysisEntry{
		Hash:      hash,
		Result:    copyResult(result),
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithFields(logrus.Fields{"image_hash": hash}).Warn("Detection cache write failed")
	}
}

// MemoryLen reports the number of in-process entries.
func (c *DetectionCache) MemoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mem)
}

func (c *DetectionCache) remember(hash string, result models.FoodDetectionResult, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[hash] = memEntry{result: copyResult(result), storedAt: now}
	if len(c.mem) > c.maxEntries {
		c.evictOldestLocked()
	}
}

func (c *DetectionCache) evictOldestLocked() {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(c.mem))
	for k, e := range c.mem {
		all = append(all, aged{k, e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	n := c.evictCount
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.mem, a.key)
	}
}

func copyResult(r models.FoodDetectionResult) models.FoodDetectionResult {
	out := models.FoodDetectionResult{PhotoQuality: r.PhotoQuality}
	out.Items = make([]models.DetectedItem, len(r.Items))
	for i, it := range r.Items {
		it.Synonyms = append([]string(nil), it.Synonyms...)
		if it.Portion.Value != nil {
			it.Portion.Value = models.Float(*it.Portion.Value)
		}
		out.Items[i] = it
	}
	return out
}
