// Package portion converts detector portion estimates into grams.
package portion

import (
	"math"
	"strings"

	"go-meal-analyzer/internal/textmatch"
	"go-meal-analyzer/pkg/models"
)

// Confidence ceilings applied when the weight came from a heuristic.
const (
	ReferenceConfidenceCap = 0.5
	CategoryConfidenceCap  = 0.3
)

// Method records which resolution step produced the gram estimate.
type Method string

const (
	MethodModelWeight     Method = "model_weight"
	MethodUnitConversion  Method = "unit_conversion"
	MethodReferenceMatch  Method = "reference_match"
	MethodCategoryDefault Method = "category_default"
)

// Estimate is the outcome of ToGrams.
type Estimate struct {
	Grams     float64
	Method    Method
	Reference string
}

// Heuristic reports whether the estimate came from a fallback table.
func (e Estimate) Heuristic() bool {
	return e.Method == MethodReferenceMatch || e.Method == MethodCategoryDefault
}

// CanonicalUnit maps common spellings onto the unit constants.
func CanonicalUnit(u models.Unit) models.Unit {
	s := strings.ToLower(strings.TrimSpace(string(u)))
	if alias, ok := unitAliases[s]; ok {
		return alias
	}
	return models.Unit(s)
}

// GramsPerUnit returns the fixed conversion factor for a mass or volume unit.
func GramsPerUnit(u models.Unit) (float64, bool) {
	g, ok := gramsPerUnit[CanonicalUnit(u)]
	return g, ok
}

// CategoryDefault returns the fallback weight for a category. Unknown
// categories use the "other" weight.
func CategoryDefault(c models.Category) float64 {
	if g, ok := categoryDefaults[c]; ok {
		return g
	}
	return categoryDefaults[models.CategoryOther]
}

// LookupReference finds the best archetype for name using textmatch.Best.
func LookupReference(name string) (Reference, bool) {
	if i := textmatch.Best(name, referenceNames); i >= 0 {
		return References[i], true
	}
	return Reference{}, false
}

// ToGrams resolves a portion to grams. The first applicable step wins:
// explicit weight, unit conversion, reference archetype, category default.
func ToGrams(name string, category models.Category, p models.Portion) Estimate {
	if p.EstimateType == models.EstimateWeightG && p.HasPositiveValue() {
		return Estimate{Grams: *p.Value, Method: MethodModelWeight}
	}
	if p.HasPositiveValue() {
		if factor, ok := GramsPerUnit(p.Unit); ok {
			return Estimate{Grams: *p.Value * factor, Method: MethodUnitConversion}
		}
	}
	if ref, ok := LookupReference(name); ok {
		return Estimate{Grams: ref.TypicalG, Method: MethodReferenceMatch, Reference: ref.Name}
	}
	return Estimate{Grams: CategoryDefault(category), Method: MethodCategoryDefault}
}

// Normalize returns item with a {weight_g, grams, g} portion. Synonyms are
// tried against the reference table when the name alone misses. Heuristic
// estimates have their confidence capped.
func Normalize(item models.DetectedItem) (models.DetectedItem, Estimate) {
	est := ToGrams(item.Name, item.Category, item.Portion)
	if est.Method == MethodCategoryDefault {
		for _, syn := range item.Synonyms {
			if ref, ok := LookupReference(syn); ok {
				est = Estimate{Grams: ref.TypicalG, Method: MethodReferenceMatch, Reference: ref.Name}
				break
			}
		}
	}

	conf := clamp01(item.Portion.Confidence)
	switch est.Method {
	case MethodReferenceMatch:
		conf = math.Min(conf, ReferenceConfidenceCap)
	case MethodCategoryDefault:
		conf = math.Min(conf, CategoryConfidenceCap)
	}

	grams := math.Round(est.Grams*10) / 10
	if grams <= 0 {
		grams = CategoryDefault(item.Category)
	}
	est.Grams = grams

	item.Portion = models.Portion{
		EstimateType: models.EstimateWeightG,
		Value:        models.Float(grams),
		Unit:         models.UnitGram,
		Confidence:   conf,
	}
	return item, est
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
