package nutrition

import (
	"context"

	"go-meal-analyzer/internal/textmatch"
	"go-meal-analyzer/pkg/models"
)

// FallbackConfidence is the nutrition confidence of static estimates.
const FallbackConfidence = 0.3

// per100g is a static estimate: kcal, carbs, protein, fat, fibre, sugar (g), sodium (mg).
type per100g struct {
	name                                    string
	kcal, carbs, protein, fat, fibre, sugar float64
	sodium                                  float64
}

func (p per100g) nutrition() models.Nutrition {
	return models.Nutrition{
		Calories: models.Float(p.kcal),
		CarbsG:   models.Float(p.carbs),
		ProteinG: models.Float(p.protein),
		FatG:     models.Float(p.fat),
		FibreG:   models.Float(p.fibre),
		SugarG:   models.Float(p.sugar),
		SodiumMg: models.Float(p.sodium),
	}
}

var foodEstimates = []per100g{
	{"apple", 52, 14, 0.3, 0.2, 2.4, 10, 1},
	{"banana", 89, 23, 1.1, 0.3, 2.6, 12, 1},
	{"orange", 47, 12, 0.9, 0.1, 2.4, 9, 0},
	{"grapes", 69, 18, 0.7, 0.2, 0.9, 16, 2},
	{"strawberries", 32, 7.7, 0.7, 0.3, 2, 4.9, 1},
	{"avocado", 160, 8.5, 2, 15, 6.7, 0.7, 7},
	{"broccoli", 34, 7, 2.8, 0.4, 2.6, 1.7, 33},
	{"carrot", 41, 10, 0.9, 0.2, 2.8, 4.7, 69},
	{"salad", 17, 3.3, 1.2, 0.3, 2.1, 1.2, 28},
	{"potato", 87, 20, 1.9, 0.1, 1.8, 0.9, 5},
	{"french fries", 312, 41, 3.4, 15, 3.8, 0.3, 210},
	{"chicken breast", 165, 0, 31, 3.6, 0, 0, 74},
	{"chicken", 190, 0, 27, 9, 0, 0, 82},
	{"beef", 250, 0, 26, 15, 0, 0, 72},
	{"steak", 271, 0, 25, 19, 0, 0, 54},
	{"pork", 242, 0, 27, 14, 0, 0, 62},
	{"bacon", 541, 1.4, 37, 42, 0, 0, 1717},
	{"salmon", 208, 0, 20, 13, 0, 0, 59},
	{"tuna", 132, 0, 28, 1.3, 0, 0, 47},
	{"shrimp", 99, 0.2, 24, 0.3, 0, 0, 111},
	{"egg", 155, 1.1, 13, 11, 0, 1.1, 124},
	{"tofu", 76, 1.9, 8, 4.8, 0.3, 0.6, 7},
	{"beans", 127, 23, 8.7, 0.5, 6.4, 0.3, 1},
	{"rice", 130, 28, 2.7, 0.3, 0.4, 0.1, 1},
	{"pasta", 158, 31, 5.8, 0.9, 1.8, 0.6, 1},
	{"bread", 265, 49, 9, 3.2, 2.7, 5, 491},
	{"oatmeal", 71, 12, 2.5, 1.5, 1.7, 0.3, 49},
	{"pancakes", 227, 28, 6.4, 9.7, 0.9, 5, 439},
	{"milk", 61, 4.8, 3.2, 3.3, 0, 5.1, 43},
	{"yogurt", 61, 4.7, 3.5, 3.3, 0, 4.7, 46},
	{"cheese", 402, 1.3, 25, 33, 0, 0.5, 621},
	{"ice cream", 207, 24, 3.5, 11, 0.7, 21, 80},
	{"orange juice", 45, 10, 0.7, 0.2, 0.2, 8.4, 1},
	{"coffee", 1, 0, 0.1, 0, 0, 0, 2},
	{"soda", 41, 10.6, 0, 0, 0, 10.6, 4},
	{"chips", 536, 53, 7, 35, 4.8, 0.3, 525},
	{"nuts", 607, 21, 20, 54, 7, 4.2, 273},
	{"chocolate", 546, 61, 4.9, 31, 7, 48, 24},
	{"cookie", 488, 64, 5.1, 24, 2.4, 35, 384},
	{"cake", 371, 53, 5.3, 15, 1, 36, 318},
	{"pizza", 266, 33, 11, 10, 2.3, 3.6, 598},
	{"hamburger", 254, 24, 13, 12, 1.3, 5, 497},
	{"sandwich", 250, 28, 12, 10, 2, 4, 550},
	{"burrito", 206, 25, 8.5, 8, 2.7, 1.5, 480},
	{"sushi", 143, 28, 5.8, 0.7, 0.6, 4, 428},
	{"soup", 40, 5.5, 2, 1.2, 0.8, 1.5, 380},
	{"curry", 135, 9, 9, 7, 2, 3, 420},
}

var categoryEstimates = map[models.Category]per100g{
	models.CategoryFruit:        {"fruit", 55, 14, 0.7, 0.3, 2.2, 10, 1},
	models.CategoryVegetable:    {"vegetables", 35, 7, 2, 0.3, 2.5, 3, 30},
	models.CategoryProtein:      {"protein food", 190, 1, 25, 9, 0, 0, 80},
	models.CategoryGrain:        {"grain food", 150, 30, 4, 1.5, 2, 1, 120},
	models.CategoryDairy:        {"dairy food", 100, 6, 5, 5.5, 0, 5, 60},
	models.CategoryBeverage:     {"beverage", 40, 10, 0.3, 0.1, 0, 9, 10},
	models.CategorySnack:        {"snack", 480, 55, 7, 25, 4, 10, 450},
	models.CategoryDessert:      {"dessert", 380, 52, 5, 17, 1.5, 35, 250},
	models.CategoryPreparedMeal: {"mixed dish", 180, 18, 9, 8, 2, 3, 450},
	models.CategoryOther:        {"food", 150, 18, 6, 6, 1.5, 5, 200},
}

var foodEstimateNames = func() []string {
	names := make([]string, len(foodEstimates))
	for i, f := range foodEstimates {
		names[i] = f.name
	}
	return names
}()

// FallbackStrategy is the terminal tier. It always produces a match.
type FallbackStrategy struct{}

func (FallbackStrategy) Source() models.NutritionSource {
	return models.SourceFallbackEstimate
}

// Resolve matches the queries against per-food estimates and otherwise
// uses the category estimate.
func (FallbackStrategy) Resolve(_ context.Context, item models.DetectedItem, queries []string) (models.NutritionMatch, error) {
	return Estimate(item.Category, queries), nil
}

// Estimate returns the static per-100 g estimate for the first query with a
// per-food match, or the category estimate.
func Estimate(category models.Category, queries []string) models.NutritionMatch {
	est, ok := categoryEstimates[category]
	if !ok {
		est = categoryEstimates[models.CategoryOther]
	}
	for _, q := range queries {
		if i := textmatch.Best(q, foodEstimateNames); i >= 0 {
			est = foodEstimates[i]
			break
		}
	}
	return models.NutritionMatch{
		Source:             models.SourceFallbackEstimate,
		Confidence:         FallbackConfidence,
		MatchedFoodName:    est.name + " (estimate)",
		ServingAmount:      100,
		ServingUnit:        "g",
		ServingDescription: "100g",
		Nutrition:          est.nutrition(),
	}
}
