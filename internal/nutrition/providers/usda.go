package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go-meal-analyzer/internal/nutrition"
)

const (
	usdaBaseURL  = "https://api.nal.usda.gov/fdc/v1"
	usdaPageSize = 10
)

// FoodData Central nutrient ids.
const (
	fdcEnergy        = 1008
	fdcEnergyAtwater = 2047
	fdcEnergyGeneral = 2048
	fdcProtein       = 1003
	fdcFat           = 1004
	fdcCarbs         = 1005
	fdcFiber         = 1079
	fdcSugarsNLEA    = 2000
	fdcSugarsTotal   = 1063
	fdcSodium        = 1093
)

var usdaReferenceTypes = map[string]bool{
	"Foundation":     true,
	"SR Legacy":      true,
	"Survey (FNDDS)": true,
}

// USDA is a secondary provider backed by FoodData Central. Nutrient values
// are per 100 g.
type USDA struct {
	api    *apiClient
	apiKey string
}

func NewUSDA(apiKey string, opts ...Option) *USDA {
	return &USDA{api: newAPIClient("usda", usdaBaseURL, opts), apiKey: apiKey}
}

func (u *USDA) Name() string { return "usda" }

type fdcSearchResponse struct {
	Foods []fdcFood `json:"foods"`
}

type fdcFood struct {
	FdcID       int64  `json:"fdcId"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
	BrandOwner  string `json:"brandOwner"`
	BrandName   string `json:"brandName"`
	// search results use the flat shape, /food uses the nested one
	FoodNutrients []fdcNutrient `json:"foodNutrients"`
}

type fdcNutrient struct {
	NutrientID int       `json:"nutrientId"`
	UnitName   string    `json:"unitName"`
	Value      flexFloat `json:"value"`
	Amount     flexFloat `json:"amount"`
	Nutrient   *struct {
		ID       int    `json:"id"`
		UnitName string `json:"unitName"`
	} `json:"nutrient"`
}

func (n fdcNutrient) id() int {
	if n.Nutrient != nil {
		return n.Nutrient.ID
	}
	return n.NutrientID
}

func (n fdcNutrient) unit() string {
	if n.Nutrient != nil {
		return strings.ToLower(n.Nutrient.UnitName)
	}
	return strings.ToLower(n.UnitName)
}

func (n fdcNutrient) value() flexFloat {
	if n.Amount.Set {
		return n.Amount
	}
	return n.Value
}

// Search calls /foods/search.
func (u *USDA) Search(ctx context.Context, query string) ([]nutrition.Candidate, error) {
	params := url.Values{}
	params.Set("api_key", u.apiKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(usdaPageSize))

	var resp fdcSearchResponse
	if err := u.api.getJSON(ctx, nil, u.api.baseURL+"/foods/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]nutrition.Candidate, 0, len(resp.Foods))
	for _, f := range resp.Foods {
		out = append(out, u.toCandidate(f))
	}
	return validCandidates(u.Name(), out), nil
}

// Details calls /food/{fdcId}.
func (u *USDA) Details(ctx context.Context, c nutrition.Candidate) (nutrition.Candidate, error) {
	if _, err := strconv.ParseInt(c.ID, 10, 64); err != nil {
		return c, fmt.Errorf("usda: invalid fdcId %q", c.ID)
	}
	params := url.Values{}
	params.Set("api_key", u.apiKey)

	var food fdcFood
	endpoint := fmt.Sprintf("%s/food/%s?%s", u.api.baseURL, url.PathEscape(c.ID), params.Encode())
	if err := u.api.getJSON(ctx, nil, endpoint, &food); err != nil {
		return c, err
	}
	full := u.toCandidate(food)
	if err := validateCandidate(u.Name(), full); err != nil {
		return c, err
	}
	return full, nil
}

func (u *USDA) toCandidate(f fdcFood) nutrition.Candidate {
	brand := strings.TrimSpace(f.BrandName)
	if brand == "" {
		brand = strings.TrimSpace(f.BrandOwner)
	}
	c := nutrition.Candidate{
		Name:               f.Description,
		Brand:              brand,
		DataCategory:       f.DataType,
		ReferenceData:      usdaReferenceTypes[f.DataType],
		ServingAmount:      100,
		ServingUnit:        "g",
		ServingDescription: "100 g",
	}
	if f.FdcID > 0 {
		c.ID = strconv.FormatInt(f.FdcID, 10)
	}

	var energy, energyFallback *float64
	for _, n := range f.FoodNutrients {
		v := n.value()
		if !v.Set {
			continue
		}
		switch n.id() {
		case fdcEnergy:
			if n.unit() == "kcal" {
				energy = v.ptr()
			}
		case fdcEnergyAtwater, fdcEnergyGeneral:
			if n.unit() == "kcal" && energyFallback == nil {
				energyFallback = v.ptr()
			}
		case fdcProtein:
			c.Nutrition.ProteinG = v.ptr()
		case fdcFat:
			c.Nutrition.FatG = v.ptr()
		case fdcCarbs:
			c.Nutrition.CarbsG = v.ptr()
		case fdcFiber:
			c.Nutrition.FibreG = v.ptr()
		case fdcSugarsNLEA:
			c.Nutrition.SugarG = v.ptr()
		case fdcSugarsTotal:
			if c.Nutrition.SugarG == nil {
				c.Nutrition.SugarG = v.ptr()
			}
		case fdcSodium:
			c.Nutrition.SodiumMg = v.ptr()
		}
	}
	if energy == nil {
		energy = energyFallback
	}
	c.Nutrition.Calories = energy
	return c
}

var _ nutrition.Provider = (*USDA)(nil)
var _ nutrition.Provider = (*FatSecret)(nil)
