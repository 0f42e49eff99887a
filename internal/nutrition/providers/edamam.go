package providers

import (
	"context"
	"net/url"
	"strings"

	"go-meal-analyzer/internal/nutrition"
	"go-meal-analyzer/pkg/models"
)

const edamamBaseURL = "https://api.edamam.com/api/food-database/v2"

// Edamam is an alternative secondary provider using the food database
// parser. Parser hits already carry per-100 g nutrients.
type Edamam struct {
	api    *apiClient
	appID  string
	appKey string
}

func NewEdamam(appID, appKey string, opts ...Option) *Edamam {
	return &Edamam{api: newAPIClient("edamam", edamamBaseURL, opts), appID: appID, appKey: appKey}
}

func (e *Edamam) Name() string { return "edamam" }

type edamamParserResponse struct {
	Hints []struct {
		Food edamamFood `json:"food"`
	} `json:"hints"`
}

type edamamFood struct {
	FoodID    string               `json:"foodId"`
	Label     string               `json:"label"`
	KnownAs   string               `json:"knownAs"`
	Brand     string               `json:"brand"`
	Category  string               `json:"category"`
	Nutrients map[string]flexFloat `json:"nutrients"`
}

// Search calls the parser endpoint.
func (e *Edamam) Search(ctx context.Context, query string) ([]nutrition.Candidate, error) {
	params := url.Values{}
	params.Set("ingr", query)
	params.Set("app_id", e.appID)
	params.Set("app_key", e.appKey)
	params.Set("nutrition-type", "logging")

	var resp edamamParserResponse
	if err := e.api.getJSON(ctx, nil, e.api.baseURL+"/parser?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]nutrition.Candidate, 0, len(resp.Hints))
	seen := map[string]bool{}
	for _, h := range resp.Hints {
		f := h.Food
		if seen[f.FoodID] {
			continue
		}
		seen[f.FoodID] = true
		name := f.Label
		if name == "" {
			name = f.KnownAs
		}
		out = append(out, nutrition.Candidate{
			ID:                 f.FoodID,
			Name:               name,
			Brand:              strings.TrimSpace(f.Brand),
			DataCategory:       f.Category,
			ReferenceData:      f.Category == "Generic foods",
			ServingAmount:      100,
			ServingUnit:        "g",
			ServingDescription: "100 g",
			Nutrition: models.Nutrition{
				Calories: f.Nutrients["ENERC_KCAL"].ptr(),
				CarbsG:   f.Nutrients["CHOCDF"].ptr(),
				ProteinG: f.Nutrients["PROCNT"].ptr(),
				FatG:     f.Nutrients["FAT"].ptr(),
				FibreG:   f.Nutrients["FIBTG"].ptr(),
				SugarG:   f.Nutrients["SUGAR"].ptr(),
				SodiumMg: f.Nutrients["NA"].ptr(),
			},
		})
	}
	return validCandidates(e.Name(), out), nil
}

// Details is a no-op: parser hits are already complete.
func (e *Edamam) Details(_ context.Context, c nutrition.Candidate) (nutrition.Candidate, error) {
	return c, nil
}

var _ nutrition.Provider = (*Edamam)(nil)
