package models

// Dish categories assignable to catalog entries. The list mirrors the
// categories the dashboard dropdown offers; labels carry the Hebrew display
// text alongside the English one.
type DishCategory string

const (
	DishCategorySoup           DishCategory = "soup"
	DishCategoryProteinBeef    DishCategory = "protein_beef"
	DishCategoryProteinChicken DishCategory = "protein_chicken"
	DishCategorySchnitzel      DishCategory = "schnitzel"
	DishCategoryChickenBreast  DishCategory = "chicken_breast"
	DishCategoryFish           DishCategory = "fish"
	DishCategoryVegan          DishCategory = "vegan"
	DishCategoryCarbs          DishCategory = "carbs"
	DishCategoryLegumes        DishCategory = "legumes"
	DishCategorySalads         DishCategory = "salads"
	DishCategoryDesserts       DishCategory = "desserts"
	DishCategorySideDish       DishCategory = "side_dish"
	DishCategoryOther          DishCategory = "other"
)

var DishCategories = []DishCategory{
	DishCategorySoup,
	DishCategoryProteinBeef,
	DishCategoryProteinChicken,
	DishCategorySchnitzel,
	DishCategoryChickenBreast,
	DishCategoryFish,
	DishCategoryVegan,
	DishCategoryCarbs,
	DishCategoryLegumes,
	DishCategorySalads,
	DishCategoryDesserts,
	DishCategorySideDish,
	DishCategoryOther,
}

var DishCategoryLabels = map[DishCategory]string{
	DishCategorySoup:           "Soup / מרק",
	DishCategoryProteinBeef:    "Protein - Beef / בקר",
	DishCategoryProteinChicken: "Protein - Chicken / עוף",
	DishCategorySchnitzel:      "Schnitzel / שניצל",
	DishCategoryChickenBreast:  "Chicken Breast / חזה עוף",
	DishCategoryFish:           "Fish / דג",
	DishCategoryVegan:          "Vegan / טבעוני",
	DishCategoryCarbs:          "Carbs / פחמימות",
	DishCategoryLegumes:        "Legumes / קטניות",
	DishCategorySalads:         "Salads / סלטים",
	DishCategoryDesserts:       "Desserts / קינוחים",
	DishCategorySideDish:       "Side Dish / תוספות",
	DishCategoryOther:          "Other / אחר",
}

func (c DishCategory) Valid() bool {
	_, ok := DishCategoryLabels[c]
	return ok
}

// RuleType is a closed set so the evaluator can switch exhaustively.
type RuleType string

const (
	RuleTypeMinFrequency   RuleType = "min_frequency"
	RuleTypeMaxFrequency   RuleType = "max_frequency"
	RuleTypeExactFrequency RuleType = "exact_frequency"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeMinFrequency, RuleTypeMaxFrequency, RuleTypeExactFrequency:
		return true
	}
	return false
}

// RulePeriod scales ExpectedCount to the evaluated month.
type RulePeriod string

const (
	RulePeriodPerMonth RulePeriod = "per_month"
	RulePeriodPerWeek  RulePeriod = "per_week"
)

func (p RulePeriod) Valid() bool {
	switch p {
	case RulePeriodPerMonth, RulePeriodPerWeek:
		return true
	}
	return false
}

// Comparison is the classification of actual vs expected serving counts.
// It is a pure function of the two counts; no other value is ever produced.
type Comparison string

const (
	ComparisonAbove Comparison = "above"
	ComparisonUnder Comparison = "under"
	ComparisonEven  Comparison = "even"
)

// Classify maps (expected, actual) onto a Comparison.
func Classify(expected, actual int) Comparison {
	switch {
	case actual > expected:
		return ComparisonAbove
	case actual < expected:
		return ComparisonUnder
	default:
		return ComparisonEven
	}
}
