package nutrition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/pkg/models"

	"github.com/sirupsen/logrus"
)

// maxDetailCandidates bounds detail calls per query.
const maxDetailCandidates = 5

// Strategy is one tier of the resolver cascade.
type Strategy interface {
	Source() models.NutritionSource
	Resolve(ctx context.Context, item models.DetectedItem, queries []string) (models.NutritionMatch, error)
}

// LookupMiss reports that a strategy produced no acceptable match.
type LookupMiss struct {
	Source    models.NutritionSource
	BestScore int
	Reason    string
	Err       error
}

func (m *LookupMiss) Error() string {
	msg := fmt.Sprintf("%s: %s (best score %d)", m.Source, m.Reason, m.BestScore)
	if m.Err != nil {
		msg += ": " + m.Err.Error()
	}
	return msg
}

func (m *LookupMiss) Unwrap() error {
	return m.Err
}

// IsLookupMiss reports whether err is a *LookupMiss.
func IsLookupMiss(err error) bool {
	var miss *LookupMiss
	return errors.As(err, &miss)
}

// ProviderStrategy queries a remote provider and accepts the best scoring
// candidate at or above Threshold.
type ProviderStrategy struct {
	SourceTag      models.NutritionSource
	Provider       Provider
	Score          ScoreFunc
	Threshold      int
	Cache          MatchCache
	ConfidenceLow  float64
	ConfidenceHigh float64
}

// NewPrimaryStrategy builds the primary tier with the standard scoring.
func NewPrimaryStrategy(p Provider, cache MatchCache) *ProviderStrategy {
	return &ProviderStrategy{
		SourceTag:      models.SourcePrimaryProvider,
		Provider:       p,
		Score:          PrimaryScore,
		Threshold:      PrimaryThreshold,
		Cache:          cache,
		ConfidenceLow:  0.6,
		ConfidenceHigh: 0.95,
	}
}

// NewSecondaryStrategy builds the secondary tier with the reference-data bonus.
func NewSecondaryStrategy(p Provider, cache MatchCache) *ProviderStrategy {
	return &ProviderStrategy{
		SourceTag:      models.SourceSecondaryProvider,
		Provider:       p,
		Score:          SecondaryScore,
		Threshold:      SecondaryThreshold,
		Cache:          cache,
		ConfidenceLow:  0.5,
		ConfidenceHigh: 0.9,
	}
}

func (s *ProviderStrategy) Source() models.NutritionSource {
	return s.SourceTag
}

// Resolve tries each query in order. Provider errors on one query do not
// stop the remaining queries. Accepted matches and clean misses are cached
// per query.
func (s *ProviderStrategy) Resolve(ctx context.Context, item models.DetectedItem, queries []string) (models.NutritionMatch, error) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"source":   s.SourceTag,
		"provider": s.Provider.Name(),
		"item":     item.Name,
	})

	miss := &LookupMiss{Source: s.SourceTag, Reason: "no candidate reached threshold"}
	for _, q := range queries {
		key := CacheKey(s.SourceTag, q, item.Category)
		if s.Cache != nil {
			if cached, ok := s.Cache.GetNutrition(ctx, key); ok {
				log.WithField("query", q).Debug("Nutrition cache hit")
				if cached.Miss {
					if cached.Score > miss.BestScore {
						miss.BestScore = cached.Score
					}
					continue
				}
				return *cached, nil
			}
		}

		match, score, err := s.resolveQuery(ctx, q)
		if score > miss.BestScore {
			miss.BestScore = score
		}
		if err != nil {
			// provider failures are transient and never cached
			log.WithError(err).WithField("query", q).Warn("Provider lookup failed")
			miss.Err = err
			continue
		}
		if match == nil {
			if s.Cache != nil {
				s.Cache.PutNutrition(ctx, key, models.NutritionMatch{Source: s.SourceTag, Score: score, Miss: true})
			}
			continue
		}
		if s.Cache != nil {
			s.Cache.PutNutrition(ctx, key, *match)
		}
		return *match, nil
	}
	return models.NutritionMatch{}, miss
}

type scored struct {
	candidate Candidate
	score     int
}

func (s *ProviderStrategy) resolveQuery(ctx context.Context, query string) (*models.NutritionMatch, int, error) {
	hits, err := s.Provider.Search(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("search %q: %w", query, err)
	}
	if len(hits) > maxDetailCandidates {
		hits = hits[:maxDetailCandidates]
	}

	var ranked []scored
	var detailErr error
	for _, hit := range hits {
		full, err := s.Provider.Details(ctx, hit)
		if err != nil {
			detailErr = err
			continue
		}
		ranked = append(ranked, scored{candidate: full, score: s.Score(query, full)})
	}
	if len(ranked) == 0 {
		if detailErr != nil {
			return nil, 0, fmt.Errorf("details for %q: %w", query, detailErr)
		}
		return nil, 0, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	top := ranked[0]
	if top.score < s.Threshold {
		return nil, top.score, nil
	}

	c := top.candidate
	return &models.NutritionMatch{
		Source:             s.SourceTag,
		Confidence:         confidenceFromScore(top.score, s.ConfidenceLow, s.ConfidenceHigh),
		Score:              top.score,
		MatchedFoodName:    c.Name,
		MatchedFoodBrand:   c.Brand,
		ServingAmount:      c.ServingAmount,
		ServingUnit:        c.ServingUnit,
		ServingDescription: c.ServingDescription,
		Nutrition:          c.Nutrition,
	}, top.score, nil
}

// CacheKey builds the per-query cache key: source/query:category with the
// query lowercased and whitespace replaced by underscores.
func CacheKey(source models.NutritionSource, query string, category models.Category) string {
	key := string(source) + "/" + strings.Join(strings.Fields(strings.ToLower(query)), "_")
	if category != "" {
		key += ":" + string(category)
	}
	return key
}
