package providers

import (
	"fmt"
	"math"
	"strings"

	"go-meal-analyzer/internal/nutrition"
	"go-meal-analyzer/pkg/models"
)

// validateCandidate rejects records missing identity fields or carrying
// negative or non-finite numbers.
func validateCandidate(provider string, c nutrition.Candidate) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%s: candidate without id", provider)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%s: candidate %s without name", provider, c.ID)
	}
	if c.ServingAmount < 0 || math.IsNaN(c.ServingAmount) || math.IsInf(c.ServingAmount, 0) {
		return fmt.Errorf("%s: candidate %s has invalid serving amount %v", provider, c.ID, c.ServingAmount)
	}
	return validateNutrition(provider, c.ID, c.Nutrition)
}

func validateNutrition(provider, id string, n models.Nutrition) error {
	fields := map[string]*float64{
		"calories":  n.Calories,
		"carbs_g":   n.CarbsG,
		"protein_g": n.ProteinG,
		"fat_g":     n.FatG,
		"fibre_g":   n.FibreG,
		"sugar_g":   n.SugarG,
		"sodium_mg": n.SodiumMg,
	}
	for name, v := range fields {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			return fmt.Errorf("%s: candidate %s has invalid %s %v", provider, id, name, *v)
		}
	}
	return nil
}

// validCandidates filters search hits, keeping only well-formed ones.
func validCandidates(provider string, in []nutrition.Candidate) []nutrition.Candidate {
	out := make([]nutrition.Candidate, 0, len(in))
	for _, c := range in {
		if validateCandidate(provider, c) == nil {
			out = append(out, c)
		}
	}
	return out
}
