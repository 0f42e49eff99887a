package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go-meal-analyzer/internal/nutrition"
	"go-meal-analyzer/pkg/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	fatSecretBaseURL  = "https://platform.fatsecret.com/rest/server.api"
	fatSecretTokenURL = "https://oauth.fatsecret.com/connect/token"
	fatSecretResults  = 10
)

// FatSecret is the primary provider, authenticated with OAuth2 client
// credentials.
type FatSecret struct {
	api    *apiClient
	client *http.Client
}

// NewFatSecret builds the adapter. The token is fetched lazily and cached
// by the oauth2 transport.
func NewFatSecret(clientID, clientSecret string, opts ...Option) *FatSecret {
	api := newAPIClient("fatsecret", fatSecretBaseURL, opts)
	if api.tokenURL == "" {
		api.tokenURL = fatSecretTokenURL
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     api.tokenURL,
		Scopes:       []string{"basic"},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, api.http)
	authed := cc.Client(ctx)
	authed.Timeout = api.http.Timeout
	return &FatSecret{api: api, client: authed}
}

func (f *FatSecret) Name() string { return "fatsecret" }

type fsSearchResponse struct {
	Foods *struct {
		Food oneOrMany[fsFood] `json:"food"`
	} `json:"foods"`
	Error *fsError `json:"error"`
}

type fsDetailResponse struct {
	Food  *fsFood  `json:"food"`
	Error *fsError `json:"error"`
}

type fsError struct {
	Code    flexFloat `json:"code"`
	Message string    `json:"message"`
}

type fsFood struct {
	FoodID   string `json:"food_id"`
	FoodName string `json:"food_name"`
	FoodType string `json:"food_type"`
	Brand    string `json:"brand_name"`
	Servings *struct {
		Serving oneOrMany[fsServing] `json:"serving"`
	} `json:"servings"`
}

type fsServing struct {
	Description         string    `json:"serving_description"`
	MetricServingAmount flexFloat `json:"metric_serving_amount"`
	MetricServingUnit   string    `json:"metric_serving_unit"`
	Calories            flexFloat `json:"calories"`
	Carbohydrate        flexFloat `json:"carbohydrate"`
	Protein             flexFloat `json:"protein"`
	Fat                 flexFloat `json:"fat"`
	Fiber               flexFloat `json:"fiber"`
	Sugar               flexFloat `json:"sugar"`
	Sodium              flexFloat `json:"sodium"`
}

func (f *FatSecret) endpoint(params url.Values) string {
	params.Set("format", "json")
	return f.api.baseURL + "?" + params.Encode()
}

// Search runs foods.search.
func (f *FatSecret) Search(ctx context.Context, query string) ([]nutrition.Candidate, error) {
	params := url.Values{}
	params.Set("method", "foods.search")
	params.Set("search_expression", query)
	params.Set("max_results", fmt.Sprint(fatSecretResults))

	var resp fsSearchResponse
	if err := f.api.getJSON(ctx, f.client, f.endpoint(params), &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("fatsecret error %v: %s", resp.Error.Code.Value, resp.Error.Message)
	}
	if resp.Foods == nil {
		return nil, nil
	}

	out := make([]nutrition.Candidate, 0, len(resp.Foods.Food))
	for _, food := range resp.Foods.Food {
		out = append(out, nutrition.Candidate{
			ID:           food.FoodID,
			Name:         food.FoodName,
			Brand:        strings.TrimSpace(food.Brand),
			DataCategory: food.FoodType,
		})
	}
	return validCandidates(f.Name(), out), nil
}

// Details runs food.get.v2 and picks a serving, preferring a metric one.
func (f *FatSecret) Details(ctx context.Context, c nutrition.Candidate) (nutrition.Candidate, error) {
	params := url.Values{}
	params.Set("method", "food.get.v2")
	params.Set("food_id", c.ID)

	var resp fsDetailResponse
	if err := f.api.getJSON(ctx, f.client, f.endpoint(params), &resp); err != nil {
		return c, err
	}
	if resp.Error != nil {
		return c, fmt.Errorf("fatsecret error %v: %s", resp.Error.Code.Value, resp.Error.Message)
	}
	if resp.Food == nil || resp.Food.Servings == nil || len(resp.Food.Servings.Serving) == 0 {
		return c, fmt.Errorf("fatsecret: food %s has no servings", c.ID)
	}

	s := pickServing(resp.Food.Servings.Serving)
	full := nutrition.Candidate{
		ID:                 resp.Food.FoodID,
		Name:               resp.Food.FoodName,
		Brand:              strings.TrimSpace(resp.Food.Brand),
		DataCategory:       resp.Food.FoodType,
		ServingAmount:      s.MetricServingAmount.Value,
		ServingUnit:        strings.ToLower(s.MetricServingUnit),
		ServingDescription: s.Description,
		Nutrition: models.Nutrition{
			Calories: s.Calories.ptr(),
			CarbsG:   s.Carbohydrate.ptr(),
			ProteinG: s.Protein.ptr(),
			FatG:     s.Fat.ptr(),
			FibreG:   s.Fiber.ptr(),
			SugarG:   s.Sugar.ptr(),
			SodiumMg: s.Sodium.ptr(),
		},
	}
	if err := validateCandidate(f.Name(), full); err != nil {
		return c, err
	}
	return full, nil
}

func pickServing(servings []fsServing) fsServing {
	for _, s := range servings {
		unit := strings.ToLower(s.MetricServingUnit)
		if (unit == "g" || unit == "ml") && s.MetricServingAmount.Value == 100 {
			return s
		}
	}
	for _, s := range servings {
		if s.MetricServingAmount.Set && s.MetricServingAmount.Value > 0 {
			return s
		}
	}
	return servings[0]
}
