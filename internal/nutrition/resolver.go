package nutrition

import (
	"context"
	"fmt"
	"strings"

	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/pkg/models"

	"github.com/sirupsen/logrus"
)

// maxSynonymQueries is how many synonyms are queried after the name.
const maxSynonymQueries = 2

// Resolver walks an ordered list of strategies until one accepts.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds a resolver over strategies. A FallbackStrategy is
// appended when the list does not already end with one.
func NewResolver(strategies ...Strategy) *Resolver {
	list := make([]Strategy, 0, len(strategies)+1)
	for _, s := range strategies {
		if s != nil {
			list = append(list, s)
		}
	}
	if len(list) == 0 || list[len(list)-1].Source() != models.SourceFallbackEstimate {
		list = append(list, FallbackStrategy{})
	}
	return &Resolver{strategies: list}
}

// Strategies returns the cascade order.
func (r *Resolver) Strategies() []Strategy {
	return r.strategies
}

// Queries returns the item name followed by up to two distinct synonyms.
func Queries(item models.DetectedItem) []string {
	seen := map[string]bool{}
	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		k := strings.ToLower(q)
		if q == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, q)
	}
	add(item.Name)
	for _, syn := range item.Synonyms {
		if len(out) >= 1+maxSynonymQueries {
			break
		}
		add(syn)
	}
	return out
}

// Lookup resolves and scales nutrition for a normalized item. It never
// fails: provider errors fall through to the next tier and a panic inside
// a strategy is treated as a miss.
func (r *Resolver) Lookup(ctx context.Context, item models.DetectedItem, itemID string) models.AnalyzedItem {
	queries := Queries(item)
	log := logger.FromContext(ctx).WithFields(logrus.Fields{"item": item.Name, "item_id": itemID})

	for _, s := range r.strategies {
		match, err := r.try(ctx, s, item, queries)
		if err != nil {
			log.WithError(err).WithField("source", s.Source()).Debug("Nutrition strategy missed")
			continue
		}
		log.WithFields(logrus.Fields{
			"source":  match.Source,
			"matched": match.MatchedFoodName,
			"score":   match.Score,
		}).Debug("Nutrition resolved")
		return Scale(item, itemID, match)
	}

	return Scale(item, itemID, Estimate(item.Category, queries))
}

func (r *Resolver) try(ctx context.Context, s Strategy, item models.DetectedItem, queries []string) (match models.NutritionMatch, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &LookupMiss{Source: s.Source(), Reason: "strategy panicked", Err: fmt.Errorf("%v", rec)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return models.NutritionMatch{}, &LookupMiss{Source: s.Source(), Reason: "context done", Err: err}
	}
	return s.Resolve(ctx, item, queries)
}
