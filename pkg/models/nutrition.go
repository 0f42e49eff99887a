package models

// Nutrition holds absolute nutrient amounts. Any field may be unknown.
type Nutrition struct {
	Calories *float64 `json:"calories"`
	CarbsG   *float64 `json:"carbs_g"`
	ProteinG *float64 `json:"protein_g"`
	FatG     *float64 `json:"fat_g"`
	FibreG   *float64 `json:"fibre_g"`
	SugarG   *float64 `json:"sugar_g"`
	SodiumMg *float64 `json:"sodium_mg"`
}

// NutrientField names a Nutrition field for per-field transforms.
type NutrientField string

const (
	FieldCalories NutrientField = "calories"
	FieldCarbs    NutrientField = "carbs_g"
	FieldProtein  NutrientField = "protein_g"
	FieldFat      NutrientField = "fat_g"
	FieldFibre    NutrientField = "fibre_g"
	FieldSugar    NutrientField = "sugar_g"
	FieldSodium   NutrientField = "sodium_mg"
)

// Complete reports whether the core energy and macro fields are all present.
func (n *Nutrition) Complete() bool {
	return n != nil && n.Calories != nil && n.CarbsG != nil && n.ProteinG != nil && n.FatG != nil
}

// Map returns a copy where every present field is replaced by fn(field, value).
// Absent fields stay absent.
func (n *Nutrition) Map(fn func(field NutrientField, v float64) float64) *Nutrition {
	if n == nil {
		return nil
	}
	apply := func(field NutrientField, v *float64) *float64 {
		if v == nil {
			return nil
		}
		return Float(fn(field, *v))
	}
	return &Nutrition{
		Calories: apply(FieldCalories, n.Calories),
		CarbsG:   apply(FieldCarbs, n.CarbsG),
		ProteinG: apply(FieldProtein, n.ProteinG),
		FatG:     apply(FieldFat, n.FatG),
		FibreG:   apply(FieldFibre, n.FibreG),
		SugarG:   apply(FieldSugar, n.SugarG),
		SodiumMg: apply(FieldSodium, n.SodiumMg),
	}
}

// NutritionSource is the resolver tier that produced the nutrient values.
type NutritionSource string

const (
	SourcePrimaryProvider   NutritionSource = "primary_provider"
	SourceSecondaryProvider NutritionSource = "secondary_provider"
	SourceFallbackEstimate  NutritionSource = "fallback_estimate"
)

// AnalyzedItem is a detected item after nutrition lookup and scaling. Once
// scaled, Portion is {weight_g, 1, serving} and Nutrition holds absolute
// values for EstimatedGrams of food. PortionEstimate keeps the detector's
// original estimate type.
type AnalyzedItem struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Synonyms            []string        `json:"synonyms"`
	Category            Category        `json:"category"`
	Portion             Portion         `json:"portion"`
	PortionEstimate     EstimateType    `json:"portion_estimate_type,omitempty"`
	EstimatedGrams      float64         `json:"estimated_grams"`
	DetectionConfidence float64         `json:"detection_confidence"`
	Nutrition           *Nutrition      `json:"nutrition"`
	NutritionSource     NutritionSource `json:"nutrition_source"`
	NutritionConfidence float64         `json:"nutrition_confidence"`
	MatchedFoodName     string          `json:"matched_food_name,omitempty"`
	MatchedFoodBrand    string          `json:"matched_food_brand,omitempty"`
	ServingDescription  string          `json:"serving_description,omitempty"`
}

// NutritionLookupResult is the resolver's name for an analyzed item.
type NutritionLookupResult = AnalyzedItem

// NutritionMatch is an accepted per-serving nutrition record before scaling.
// It is also the payload stored in the per-query nutrition cache.
type NutritionMatch struct {
	Source             NutritionSource `json:"source"`
	Confidence         float64         `json:"confidence"`
	Score              int             `json:"score"`
	MatchedFoodName    string          `json:"matched_food_name"`
	MatchedFoodBrand   string          `json:"matched_food_brand,omitempty"`
	ServingAmount      float64         `json:"serving_amount"`
	ServingUnit        string          `json:"serving_unit"`
	ServingDescription string          `json:"serving_description,omitempty"`
	Nutrition          Nutrition       `json:"nutrition"`
	// Miss marks a cached query for which the provider had no acceptable
	// candidate.
	Miss bool `json:"miss,omitempty"`
}
