package engine

import (
	"math"
	"strings"
)

// Nutrient names read from provider records. Matching is case-sensitive.
const (
	nutrientCalories = "Calories"
	nutrientProtein  = "Protein"
	nutrientFat      = "Fat"
	nutrientCarbs    = "Carbohydrates"
)

// Normalize converts a provider record into a RecipeRecord.
//
// Only the four tracked nutrients are read; a repeated name keeps its last
// amount and a missing one counts as zero. Amounts round half to even and
// never go below zero.
func Normalize(raw RawRecipe) (RecipeRecord, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return RecipeRecord{}, &ValidationError{Field: "recipe.id", Reason: "missing"}
	}
	if strings.TrimSpace(raw.Title) == "" {
		return RecipeRecord{}, &ValidationError{Field: "recipe.title", Reason: "missing for id " + raw.ID}
	}

	rec := RecipeRecord{
		ID:             raw.ID,
		Title:          raw.Title,
		Image:          raw.Image,
		ReadyInMinutes: raw.ReadyInMinutes,
		Servings:       raw.Servings,
	}
	for _, n := range raw.Nutrients {
		switch n.Name {
		case nutrientCalories:
			rec.Calories = roundAmount(n.Amount)
		case nutrientProtein:
			rec.Protein = roundAmount(n.Amount)
		case nutrientFat:
			rec.Fat = roundAmount(n.Amount)
		case nutrientCarbs:
			rec.Carbs = roundAmount(n.Amount)
		}
	}
	return rec, nil
}

// NormalizeAll normalizes a batch and tags each record with subtype.
// Malformed records are skipped and counted.
func NormalizeAll(raws []RawRecipe, subtype string) (records []RecipeRecord, skipped int) {
	records = make([]RecipeRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec.WithSubtype(subtype))
	}
	return records, skipped
}

func roundAmount(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.RoundToEven(v))
}
