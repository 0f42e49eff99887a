package portion

import "go-meal-analyzer/pkg/models"

// Reference is a typical single-portion weight for a food archetype.
type Reference struct {
	Name     string
	Category models.Category
	TypicalG float64
	MinG     float64
	MaxG     float64
}

// Extra units understood by the normalizer beyond the detector enum.
const (
	UnitLiter models.Unit = "l"
	UnitOunce models.Unit = "oz"
	UnitFlOz  models.Unit = "fl_oz"
	UnitPint  models.Unit = "pint"
	UnitQuart models.Unit = "quart"
)

var gramsPerUnit = map[models.Unit]float64{
	models.UnitGram: 1,
	models.UnitML:   1,
	UnitLiter:       1000,
	models.UnitCup:  240,
	models.UnitTbsp: 15,
	models.UnitTsp:  5,
	UnitOunce:       28.35,
	UnitFlOz:        29.57,
	UnitPint:        473,
	UnitQuart:       946,
}

var unitAliases = map[string]models.Unit{
	"gram": models.UnitGram, "grams": models.UnitGram, "gr": models.UnitGram,
	"milliliter": models.UnitML, "milliliters": models.UnitML, "millilitre": models.UnitML,
	"liter": UnitLiter, "liters": UnitLiter, "litre": UnitLiter, "litres": UnitLiter,
	"cups":       models.UnitCup,
	"tablespoon": models.UnitTbsp, "tablespoons": models.UnitTbsp,
	"teaspoon": models.UnitTsp, "teaspoons": models.UnitTsp,
	"ounce": UnitOunce, "ounces": UnitOunce,
	"fl oz": UnitFlOz, "floz": UnitFlOz, "fluid ounce": UnitFlOz, "fluid ounces": UnitFlOz,
	"pints":  UnitPint,
	"quarts": UnitQuart,
}

var categoryDefaults = map[models.Category]float64{
	models.CategoryFruit:        150,
	models.CategoryVegetable:    100,
	models.CategoryProtein:      150,
	models.CategoryGrain:        180,
	models.CategoryDairy:        200,
	models.CategoryBeverage:     250,
	models.CategorySnack:        50,
	models.CategoryDessert:      120,
	models.CategoryPreparedMeal: 350,
	models.CategoryOther:        150,
}

// References is ordered so more specific archetypes precede generic ones
// with the same token overlap.
var References = []Reference{
	// fruit
	{"apple", models.CategoryFruit, 180, 130, 250},
	{"banana", models.CategoryFruit, 120, 90, 150},
	{"orange", models.CategoryFruit, 140, 100, 200},
	{"pear", models.CategoryFruit, 170, 130, 230},
	{"peach", models.CategoryFruit, 150, 100, 200},
	{"grapes", models.CategoryFruit, 150, 80, 250},
	{"strawberries", models.CategoryFruit, 150, 80, 250},
	{"blueberries", models.CategoryFruit, 100, 50, 150},
	{"mango", models.CategoryFruit, 200, 150, 300},
	{"pineapple", models.CategoryFruit, 165, 100, 250},
	{"watermelon", models.CategoryFruit, 280, 150, 450},
	{"kiwi", models.CategoryFruit, 75, 60, 100},
	{"avocado", models.CategoryFruit, 150, 100, 200},
	{"fruit salad", models.CategoryFruit, 200, 120, 300},
	// vegetable
	{"broccoli", models.CategoryVegetable, 90, 50, 150},
	{"carrot", models.CategoryVegetable, 60, 40, 100},
	{"green salad", models.CategoryVegetable, 100, 50, 200},
	{"side salad", models.CategoryVegetable, 80, 40, 150},
	{"tomato", models.CategoryVegetable, 120, 80, 180},
	{"cucumber", models.CategoryVegetable, 100, 50, 300},
	{"spinach", models.CategoryVegetable, 60, 30, 120},
	{"green beans", models.CategoryVegetable, 100, 60, 150},
	{"corn", models.CategoryVegetable, 150, 90, 200},
	{"peas", models.CategoryVegetable, 80, 50, 150},
	{"bell pepper", models.CategoryVegetable, 120, 80, 180},
	{"mushrooms", models.CategoryVegetable, 70, 30, 120},
	{"potato", models.CategoryVegetable, 170, 120, 300},
	{"sweet potato", models.CategoryVegetable, 150, 100, 250},
	{"mashed potatoes", models.CategoryVegetable, 200, 150, 300},
	{"french fries", models.CategoryVegetable, 120, 70, 200},
	{"roasted vegetables", models.CategoryVegetable, 150, 100, 250},
	// protein
	{"chicken breast", models.CategoryProtein, 170, 120, 250},
	{"chicken thigh", models.CategoryProtein, 120, 80, 180},
	{"chicken wings", models.CategoryProtein, 150, 90, 250},
	{"steak", models.CategoryProtein, 225, 150, 350},
	{"ground beef", models.CategoryProtein, 115, 85, 170},
	{"pork chop", models.CategoryProtein, 180, 120, 250},
	{"bacon", models.CategoryProtein, 30, 15, 60},
	{"sausage", models.CategoryProtein, 75, 45, 120},
	{"salmon", models.CategoryProtein, 170, 120, 230},
	{"tuna", models.CategoryProtein, 140, 85, 200},
	{"shrimp", models.CategoryProtein, 100, 60, 170},
	{"fish fillet", models.CategoryProtein, 150, 100, 220},
	{"egg", models.CategoryProtein, 50, 40, 60},
	{"scrambled eggs", models.CategoryProtein, 120, 80, 180},
	{"omelette", models.CategoryProtein, 150, 100, 250},
	{"tofu", models.CategoryProtein, 125, 80, 200},
	{"beans", models.CategoryProtein, 130, 80, 200},
	{"lentils", models.CategoryProtein, 150, 100, 220},
	{"turkey", models.CategoryProtein, 110, 80, 170},
	// grain
	{"white rice", models.CategoryGrain, 160, 100, 250},
	{"brown rice", models.CategoryGrain, 160, 100, 250},
	{"fried rice", models.CategoryGrain, 200, 150, 300},
	{"pasta", models.CategoryGrain, 200, 140, 300},
	{"spaghetti", models.CategoryGrain, 200, 140, 300},
	{"noodles", models.CategoryGrain, 200, 140, 300},
	{"bread", models.CategoryGrain, 30, 25, 50},
	{"toast", models.CategoryGrain, 30, 25, 50},
	{"bagel", models.CategoryGrain, 100, 80, 130},
	{"tortilla", models.CategoryGrain, 45, 30, 70},
	{"oatmeal", models.CategoryGrain, 235, 150, 300},
	{"cereal", models.CategoryGrain, 40, 30, 60},
	{"pancakes", models.CategoryGrain, 150, 80, 250},
	{"waffle", models.CategoryGrain, 75, 50, 120},
	{"quinoa", models.CategoryGrain, 185, 120, 250},
	{"croissant", models.CategoryGrain, 60, 40, 90},
	// dairy
	{"milk", models.CategoryDairy, 245, 200, 300},
	{"yogurt", models.CategoryDairy, 170, 120, 250},
	{"greek yogurt", models.CategoryDairy, 170, 120, 230},
	{"cheese", models.CategoryDairy, 30, 15, 60},
	{"cottage cheese", models.CategoryDairy, 115, 80, 200},
	{"butter", models.CategoryDairy, 10, 5, 20},
	{"ice cream", models.CategoryDessert, 130, 70, 200},
	// beverage
	{"coffee", models.CategoryBeverage, 240, 150, 400},
	{"tea", models.CategoryBeverage, 240, 150, 400},
	{"orange juice", models.CategoryBeverage, 250, 180, 350},
	{"smoothie", models.CategoryBeverage, 350, 250, 500},
	{"soda", models.CategoryBeverage, 355, 250, 600},
	{"beer", models.CategoryBeverage, 355, 330, 500},
	{"wine", models.CategoryBeverage, 150, 120, 250},
	{"water", models.CategoryBeverage, 250, 200, 500},
	// snack
	{"chips", models.CategorySnack, 30, 20, 60},
	{"nuts", models.CategorySnack, 30, 15, 60},
	{"almonds", models.CategorySnack, 28, 15, 50},
	{"granola bar", models.CategorySnack, 40, 25, 60},
	{"crackers", models.CategorySnack, 30, 15, 50},
	{"popcorn", models.CategorySnack, 30, 15, 60},
	{"hummus", models.CategorySnack, 60, 30, 100},
	// dessert
	{"chocolate", models.CategoryDessert, 40, 20, 80},
	{"cookie", models.CategoryDessert, 35, 15, 60},
	{"cake", models.CategoryDessert, 110, 70, 160},
	{"brownie", models.CategoryDessert, 60, 40, 100},
	{"donut", models.CategoryDessert, 70, 50, 100},
	{"muffin", models.CategoryDessert, 110, 60, 150},
	{"pie", models.CategoryDessert, 125, 90, 180},
	// prepared meals
	{"pizza slice", models.CategoryPreparedMeal, 110, 80, 180},
	{"pizza", models.CategoryPreparedMeal, 220, 110, 450},
	{"hamburger", models.CategoryPreparedMeal, 250, 180, 350},
	{"sandwich", models.CategoryPreparedMeal, 220, 150, 320},
	{"burrito", models.CategoryPreparedMeal, 300, 220, 450},
	{"tacos", models.CategoryPreparedMeal, 170, 100, 250},
	{"sushi", models.CategoryPreparedMeal, 200, 120, 320},
	{"soup", models.CategoryPreparedMeal, 300, 240, 450},
	{"curry", models.CategoryPreparedMeal, 300, 200, 450},
	{"stir fry", models.CategoryPreparedMeal, 300, 200, 450},
	{"lasagna", models.CategoryPreparedMeal, 250, 180, 350},
	{"caesar salad", models.CategoryPreparedMeal, 200, 120, 320},
	{"poke bowl", models.CategoryPreparedMeal, 400, 300, 550},
	{"hot dog", models.CategoryPreparedMeal, 100, 75, 150},
}

var referenceNames = func() []string {
	names := make([]string, len(References))
	for i, ref := range References {
		names[i] = ref.Name
	}
	return names
}()
