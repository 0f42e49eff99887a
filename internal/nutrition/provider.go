// Package nutrition resolves detected foods to nutrient values through an
// ordered cascade of provider strategies ending in static estimates.
package nutrition

import (
	"context"

	"go-meal-analyzer/pkg/models"
)

// Candidate is a food record returned by a provider. Search results may
// carry only identity fields; Details fills in the serving and nutrients.
type Candidate struct {
	ID                 string
	Name               string
	Brand              string
	DataCategory       string
	ReferenceData      bool
	ServingAmount      float64
	ServingUnit        string
	ServingDescription string
	Nutrition          models.Nutrition
}

// Branded reports whether the record belongs to a commercial product.
func (c Candidate) Branded() bool {
	return c.Brand != ""
}

// Provider is a remote nutrition database.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Candidate, error)
	Details(ctx context.Context, c Candidate) (Candidate, error)
}

// MatchCache stores provider outcomes per normalized query. Entries with
// Miss set record that no candidate was accepted.
type MatchCache interface {
	GetNutrition(ctx context.Context, key string) (*models.NutritionMatch, bool)
	PutNutrition(ctx context.Context, key string, m models.NutritionMatch)
}
