package nutrition

import (
	"fmt"
	"time"
)

// TargetsDTO represents the daily nutrition targets of a user.
type TargetsDTO struct {
	CaloriesKcal int       `json:"calories_kcal"`
	ProteinG     int       `json:"protein_g"`
	FatG         int       `json:"fat_g"`
	CarbsG       int       `json:"carbs_g"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetTargetsResponse flags targets that were never saved by the user.
type GetTargetsResponse struct {
	Targets   TargetsDTO `json:"targets"`
	IsDefault bool       `json:"is_default"`
}

// UpsertTargetsRequest is the request body for PUT /v1/nutrition/targets.
type UpsertTargetsRequest struct {
	CaloriesKcal int `json:"calories_kcal"`
	ProteinG     int `json:"protein_g"`
	FatG         int `json:"fat_g"`
	CarbsG       int `json:"carbs_g"`
}

// targetBounds are the accepted daily ranges, inclusive.
var targetBounds = []struct {
	field    string
	min, max int
	value    func(*UpsertTargetsRequest) int
}{
	{"calories_kcal", 800, 6000, func(r *UpsertTargetsRequest) int { return r.CaloriesKcal }},
	{"protein_g", 20, 400, func(r *UpsertTargetsRequest) int { return r.ProteinG }},
	{"fat_g", 0, 400, func(r *UpsertTargetsRequest) int { return r.FatG }},
	{"carbs_g", 0, 1000, func(r *UpsertTargetsRequest) int { return r.CarbsG }},
}

func (r *UpsertTargetsRequest) Validate() error {
	for _, b := range targetBounds {
		if v := b.value(r); v < b.min || v > b.max {
			return fmt.Errorf("%s must be between %d and %d", b.field, b.min, b.max)
		}
	}
	return nil
}

// CalculateRequest is the request body for POST /v1/nutrition/targets/calculate.
type CalculateRequest struct {
	Sex           string  `json:"sex"`
	Age           int     `json:"age"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
	Goal          string  `json:"goal"`
	// Save stores the result as the user's targets.
	Save bool `json:"save"`
}

// CalculateResponse carries the computed intake and the saved targets, if any.
type CalculateResponse struct {
	BMR     int        `json:"bmr"`
	TDEE    int        `json:"tdee"`
	Targets TargetsDTO `json:"targets"`
	Saved   bool       `json:"saved"`
}

// GetDefaultTargets is what users without stored targets see.
func GetDefaultTargets() TargetsDTO {
	now := time.Now().UTC()
	return TargetsDTO{
		CaloriesKcal: 2000,
		ProteinG:     80,
		FatG:         67,
		CarbsG:       245,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
