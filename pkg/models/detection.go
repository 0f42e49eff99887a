package models

// Category is the food group a detected item belongs to.
type Category string

const (
	CategoryFruit        Category = "fruit"
	CategoryVegetable    Category = "vegetable"
	CategoryProtein      Category = "protein"
	CategoryGrain        Category = "grain"
	CategoryDairy        Category = "dairy"
	CategoryBeverage     Category = "beverage"
	CategorySnack        Category = "snack"
	CategoryDessert      Category = "dessert"
	CategoryPreparedMeal Category = "prepared_meal"
	CategoryOther        Category = "other"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryFruit, CategoryVegetable, CategoryProtein, CategoryGrain, CategoryDairy,
	CategoryBeverage, CategorySnack, CategoryDessert, CategoryPreparedMeal, CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// EstimateType describes how a portion value was expressed by the detector.
type EstimateType string

const (
	EstimateNone        EstimateType = "none"
	EstimateQualitative EstimateType = "qualitative"
	EstimateVolumeML    EstimateType = "volume_ml"
	EstimateWeightG     EstimateType = "weight_g"
)

// EstimateTypes lists the estimate types the detector may emit.
var EstimateTypes = []EstimateType{EstimateNone, EstimateQualitative, EstimateVolumeML, EstimateWeightG}

// Valid reports whether e is a known estimate type.
func (e EstimateType) Valid() bool {
	for _, known := range EstimateTypes {
		if e == known {
			return true
		}
	}
	return false
}

// Unit is a portion unit. The detector is restricted to DetectorUnits; the
// normalizer also understands a wider set of household and imperial units.
type Unit string

const (
	UnitML      Unit = "ml"
	UnitGram    Unit = "g"
	UnitCup     Unit = "cup"
	UnitTbsp    Unit = "tbsp"
	UnitTsp     Unit = "tsp"
	UnitPiece   Unit = "piece"
	UnitSlice   Unit = "slice"
	UnitServing Unit = "serving"
)

// DetectorUnits lists the units the vision model is allowed to return.
var DetectorUnits = []Unit{UnitML, UnitGram, UnitCup, UnitTbsp, UnitTsp, UnitPiece, UnitSlice, UnitServing}

// ValidDetectorUnit reports whether u is allowed in detector output.
func (u Unit) ValidDetectorUnit() bool {
	for _, known := range DetectorUnits {
		if u == known {
			return true
		}
	}
	return false
}

// Portion is a size estimate for one item.
type Portion struct {
	EstimateType EstimateType `json:"estimate_type"`
	Value        *float64     `json:"value"`
	Unit         Unit         `json:"unit"`
	Confidence   float64      `json:"confidence"`
}

// HasPositiveValue reports whether the portion carries a usable number.
func (p Portion) HasPositiveValue() bool {
	return p.Value != nil && *p.Value > 0
}

// ValueOr returns the portion value or def when it is absent.
func (p Portion) ValueOr(def float64) float64 {
	if p.Value == nil {
		return def
	}
	return *p.Value
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// DetectedItem is one food the vision model found in the photo.
type DetectedItem struct {
	Name                     string   `json:"name"`
	Synonyms                 []string `json:"synonyms"`
	Category                 Category `json:"category"`
	VisiblePortionDescriptor string   `json:"visible_portion_descriptor"`
	Portion                  Portion  `json:"portion"`
	Confidence               float64  `json:"confidence"`
}

// PhotoQuality flags drive user-facing warnings only.
type PhotoQuality struct {
	IsBlurry           bool `json:"is_blurry"`
	HasOcclusion       bool `json:"has_occlusion"`
	HasReferenceObject bool `json:"has_reference_object"`
	LightingIssue      bool `json:"lighting_issue"`
}

// Merge ORs the issue flags of other into q. HasReferenceObject is kept as-is.
func (q PhotoQuality) Merge(other PhotoQuality) PhotoQuality {
	q.IsBlurry = q.IsBlurry || other.IsBlurry
	q.HasOcclusion = q.HasOcclusion || other.HasOcclusion
	q.LightingIssue = q.LightingIssue || other.LightingIssue
	return q
}

// FoodDetectionResult is the detector output for one photo.
type FoodDetectionResult struct {
	Items        []DetectedItem `json:"items"`
	PhotoQuality PhotoQuality   `json:"photo_quality"`
}

// Empty reports whether nothing was detected.
func (r *FoodDetectionResult) Empty() bool {
	return r == nil || len(r.Items) == 0
}
