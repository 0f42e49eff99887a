package portion

import (
	"math"
	"testing"

	"go-meal-analyzer/pkg/models"
)

func TestNormalizeAlwaysYieldsPositiveWeight(t *testing.T) {
	units := append([]models.Unit{}, models.DetectorUnits...)
	units = append(units, UnitLiter, UnitOunce, UnitFlOz, UnitPint, UnitQuart, "handful", "")
	values := []*float64{nil, models.Float(0), models.Float(-3), models.Float(0.01), models.Float(2), models.Float(180)}
	names := []string{"", "grilled chicken breast", "xyzzy plate"}

	for _, category := range append(models.Categories, "bogus") {
		for _, et := range append(models.EstimateTypes, "bogus") {
			for _, unit := range units {
				for _, v := range values {
					for _, name := range names {
						item := models.DetectedItem{
							Name:     name,
							Category: category,
							Portion:  models.Portion{EstimateType: et, Value: v, Unit: unit, Confidence: 0.9},
						}
						got, _ := Normalize(item)
						if got.Portion.EstimateType != models.EstimateWeightG {
							t.Fatalf("%+v: estimate_type = %q", item, got.Portion.EstimateType)
						}
						if got.Portion.Value == nil || *got.Portion.Value <= 0 {
							t.Fatalf("%+v: value = %v", item, got.Portion.Value)
						}
						if got.Portion.Unit != models.UnitGram {
							t.Fatalf("%+v: unit = %q", item, got.Portion.Unit)
						}
					}
				}
			}
		}
	}
}

func TestToGramsResolutionOrder(t *testing.T) {
	tests := []struct {
		name     string
		food     string
		category models.Category
		portion  models.Portion
		grams    float64
		method   Method
	}{
		{
			name:    "explicit weight",
			food:    "grilled chicken breast",
			portion: models.Portion{EstimateType: models.EstimateWeightG, Value: models.Float(180), Unit: models.UnitGram},
			grams:   180, method: MethodModelWeight,
		},
		{
			name:    "cups",
			food:    "milk",
			portion: models.Portion{EstimateType: models.EstimateVolumeML, Value: models.Float(1.5), Unit: models.UnitCup},
			grams:   360, method: MethodUnitConversion,
		},
		{
			name:    "tablespoons",
			food:    "peanut butter",
			portion: models.Portion{EstimateType: models.EstimateQualitative, Value: models.Float(2), Unit: models.UnitTbsp},
			grams:   30, method: MethodUnitConversion,
		},
		{
			name:    "fluid ounces alias",
			food:    "soda",
			portion: models.Portion{EstimateType: models.EstimateVolumeML, Value: models.Float(12), Unit: "fl oz"},
			grams:   12 * 29.57, method: MethodUnitConversion,
		},
		{
			name:    "pieces fall to reference",
			food:    "Bananas",
			portion: models.Portion{EstimateType: models.EstimateQualitative, Value: models.Float(1), Unit: models.UnitPiece},
			grams:   120, method: MethodReferenceMatch,
		},
		{
			name:     "unknown food uses category",
			food:     "mystery stew",
			category: models.CategoryDessert,
			portion:  models.Portion{EstimateType: models.EstimateNone, Unit: models.UnitServing},
			grams:    120, method: MethodCategoryDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToGrams(tt.food, tt.category, tt.portion)
			if got.Method != tt.method {
				t.Errorf("method = %q, want %q", got.Method, tt.method)
			}
			if math.Abs(got.Grams-tt.grams) > 1e-9 {
				t.Errorf("grams = %v, want %v", got.Grams, tt.grams)
			}
		})
	}
}

func TestLookupReferencePrefersMostSpecific(t *testing.T) {
	tests := map[string]string{
		"grilled chicken breast":   "chicken breast",
		"Scrambled Eggs":           "scrambled eggs",
		"slice of pepperoni pizza": "pizza",
		"ice cream sundae":         "ice cream",
		"carrots":                  "carrot",
	}
	for in, want := range tests {
		ref, ok := LookupReference(in)
		if !ok {
			t.Errorf("LookupReference(%q) found nothing", in)
			continue
		}
		if ref.Name != want {
			t.Errorf("LookupReference(%q) = %q, want %q", in, ref.Name, want)
		}
	}
	if _, ok := LookupReference("zzz"); ok {
		t.Error("unexpected match for nonsense name")
	}
}

func TestNormalizeCapsHeuristicConfidence(t *testing.T) {
	ref, est := Normalize(models.DetectedItem{
		Name:     "apple",
		Category: models.CategoryFruit,
		Portion:  models.Portion{EstimateType: models.EstimateQualitative, Unit: models.UnitPiece, Confidence: 0.9},
	})
	if est.Method != MethodReferenceMatch || ref.Portion.Confidence != ReferenceConfidenceCap {
		t.Errorf("reference path: method=%q confidence=%v", est.Method, ref.Portion.Confidence)
	}

	cat, est := Normalize(models.DetectedItem{
		Name:     "qwerty",
		Category: models.CategoryGrain,
		Portion:  models.Portion{EstimateType: models.EstimateNone, Unit: models.UnitServing, Confidence: 0.8},
	})
	if est.Method != MethodCategoryDefault || cat.Portion.Confidence != CategoryConfidenceCap {
		t.Errorf("category path: method=%q confidence=%v", est.Method, cat.Portion.Confidence)
	}
	if *cat.Portion.Value != 180 {
		t.Errorf("grain default = %v", *cat.Portion.Value)
	}

	low, _ := Normalize(models.DetectedItem{
		Name:    "apple",
		Portion: models.Portion{EstimateType: models.EstimateNone, Confidence: 0.2},
	})
	if low.Portion.Confidence != 0.2 {
		t.Errorf("lower confidence should be kept, got %v", low.Portion.Confidence)
	}

	exact, _ := Normalize(models.DetectedItem{
		Name:    "steak",
		Portion: models.Portion{EstimateType: models.EstimateWeightG, Value: models.Float(250), Unit: models.UnitGram, Confidence: 0.88},
	})
	if exact.Portion.Confidence != 0.88 {
		t.Errorf("model weight confidence changed to %v", exact.Portion.Confidence)
	}
}

func TestNormalizeUsesSynonyms(t *testing.T) {
	item, est := Normalize(models.DetectedItem{
		Name:     "zxcv",
		Synonyms: []string{"blah", "porridge oatmeal"},
		Category: models.CategoryOther,
		Portion:  models.Portion{EstimateType: models.EstimateNone, Confidence: 0.7},
	})
	if est.Method != MethodReferenceMatch || est.Reference != "oatmeal" {
		t.Fatalf("estimate = %+v", est)
	}
	if *item.Portion.Value != 235 {
		t.Errorf("grams = %v", *item.Portion.Value)
	}
}

func TestCategoryDefaultsWithinBounds(t *testing.T) {
	for _, c := range models.Categories {
		g := CategoryDefault(c)
		if g < 50 || g > 350 {
			t.Errorf("%s default %v outside [50,350]", c, g)
		}
	}
	if CategoryDefault("unknown") != CategoryDefault(models.CategoryOther) {
		t.Error("unknown category should use the other default")
	}
}
