package nutrition

import (
	"math"
	"strconv"
	"strings"

	"go-meal-analyzer/internal/portion"
	"go-meal-analyzer/pkg/models"
)

// Scaling multiplier bounds.
const (
	MinMultiplier = 0.1
	MaxMultiplier = 10

	defaultServingGrams = 100
)

// ServingGrams resolves a provider serving to grams. Mass and volume units
// use the portion conversion table; anything else is treated as 100 g.
func ServingGrams(amount float64, unit string) float64 {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return defaultServingGrams
	}
	if factor, ok := portion.GramsPerUnit(models.Unit(unit)); ok {
		return amount * factor
	}
	return defaultServingGrams
}

// Multiplier is detectedGrams / servingGrams clamped to the scaling bounds.
func Multiplier(detectedGrams, servingGrams float64) float64 {
	if servingGrams <= 0 {
		servingGrams = defaultServingGrams
	}
	m := detectedGrams / servingGrams
	switch {
	case math.IsNaN(m) || m < MinMultiplier:
		return MinMultiplier
	case m > MaxMultiplier:
		return MaxMultiplier
	}
	return m
}

// MultiplyNutrition multiplies every present field by factor and rounds:
// calories and sodium to integers, the rest to one decimal.
func MultiplyNutrition(n *models.Nutrition, factor float64) *models.Nutrition {
	return n.Map(func(field models.NutrientField, v float64) float64 {
		return roundNutrient(field, v*factor)
	})
}

func roundNutrient(field models.NutrientField, v float64) float64 {
	if field == models.FieldCalories || field == models.FieldSodium {
		return math.Round(v)
	}
	return math.Round(v*10) / 10
}

// Scale turns a per-serving match into absolute values for the item's
// normalized gram weight. The returned portion is {weight_g, 1, serving}.
func Scale(item models.DetectedItem, itemID string, m models.NutritionMatch) models.AnalyzedItem {
	grams := item.Portion.ValueOr(0)
	servingGrams := ServingGrams(m.ServingAmount, m.ServingUnit)
	mult := Multiplier(grams, servingGrams)

	return models.AnalyzedItem{
		ID:       itemID,
		Name:     item.Name,
		Synonyms: nonNilStrings(item.Synonyms),
		Category: item.Category,
		Portion: models.Portion{
			EstimateType: models.EstimateWeightG,
			Value:        models.Float(1),
			Unit:         models.UnitServing,
			Confidence:   item.Portion.Confidence,
		},
		EstimatedGrams:      grams,
		DetectionConfidence: item.Confidence,
		Nutrition:           MultiplyNutrition(&m.Nutrition, mult),
		NutritionSource:     m.Source,
		NutritionConfidence: m.Confidence,
		MatchedFoodName:     m.MatchedFoodName,
		MatchedFoodBrand:    m.MatchedFoodBrand,
		ServingDescription:  formatGrams(grams) + "g (scaled from per " + formatGrams(servingGrams) + "g)",
	}
}

func formatGrams(g float64) string {
	return strconv.FormatFloat(math.Round(g*10)/10, 'f', -1, 64)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
