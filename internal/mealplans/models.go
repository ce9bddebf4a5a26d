package mealplans

import (
	"time"

	"github.com/fdg312/mealweek/internal/storage"
)

type MealPlanDTO struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	TargetCalories  int       `json:"target_calories"`
	TargetProteinG  int       `json:"target_protein_g"`
	SolveDurationMs int64     `json:"solve_duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

type MealPlanItemDTO struct {
	ID             string  `json:"id"`
	DayIndex       int     `json:"day_index"`
	MealSlot       string  `json:"meal_slot"`
	RecipeID       string  `json:"recipe_id"`
	Title          string  `json:"title"`
	ImageURL       *string `json:"image_url,omitempty"`
	ReadyInMinutes *int    `json:"ready_in_minutes,omitempty"`
	Servings       *int    `json:"servings,omitempty"`
	Subtype        string  `json:"subtype,omitempty"`
	CaloriesKcal   int     `json:"calories_kcal"`
	ProteinG       int     `json:"protein_g"`
	FatG           int     `json:"fat_g"`
	CarbsG         int     `json:"carbs_g"`
}

// DayTotalsDTO sums the items of one day.
type DayTotalsDTO struct {
	DayIndex     int `json:"day_index"`
	CaloriesKcal int `json:"calories_kcal"`
	ProteinG     int `json:"protein_g"`
	FatG         int `json:"fat_g"`
	CarbsG       int `json:"carbs_g"`
}

type GetMealPlanResponse struct {
	Plan  *MealPlanDTO      `json:"plan"`
	Items []MealPlanItemDTO `json:"items"`
	Days  []DayTotalsDTO    `json:"days"`
}

type GetTodayResponse struct {
	Date     string            `json:"date"`
	DayIndex int               `json:"day_index"`
	Items    []MealPlanItemDTO `json:"items"`
	Totals   DayTotalsDTO      `json:"totals"`
}

// NewMealPlanResponse builds the response body for a stored plan.
func NewMealPlanResponse(plan storage.MealPlan, items []storage.MealPlanItem) GetMealPlanResponse {
	return GetMealPlanResponse{
		Plan: &MealPlanDTO{
			ID:              plan.ID,
			Title:           plan.Title,
			TargetCalories:  plan.TargetCalories,
			TargetProteinG:  plan.TargetProteinG,
			SolveDurationMs: plan.SolveDurationMs,
			CreatedAt:       plan.CreatedAt,
		},
		Items: toItemDTOs(items),
		Days:  WeekTotals(items),
	}
}

// WeekTotals returns seven day totals, zero for empty days.
func WeekTotals(items []storage.MealPlanItem) []DayTotalsDTO {
	days := make([]DayTotalsDTO, 7)
	for d := range days {
		days[d].DayIndex = d
	}
	for _, item := range items {
		if item.DayIndex < 0 || item.DayIndex >= len(days) {
			continue
		}
		addItem(&days[item.DayIndex], item)
	}
	return days
}

func addItem(t *DayTotalsDTO, item storage.MealPlanItem) {
	t.CaloriesKcal += item.CaloriesKcal
	t.ProteinG += item.ProteinG
	t.FatG += item.FatG
	t.CarbsG += item.CarbsG
}

func toItemDTOs(items []storage.MealPlanItem) []MealPlanItemDTO {
	out := make([]MealPlanItemDTO, len(items))
	for i, item := range items {
		out[i] = MealPlanItemDTO{
			ID:             item.ID,
			DayIndex:       item.DayIndex,
			MealSlot:       item.MealSlot,
			RecipeID:       item.RecipeID,
			Title:          item.Title,
			ImageURL:       item.ImageURL,
			ReadyInMinutes: item.ReadyInMinutes,
			Servings:       item.Servings,
			Subtype:        item.Subtype,
			CaloriesKcal:   item.CaloriesKcal,
			ProteinG:       item.ProteinG,
			FatG:           item.FatG,
			CarbsG:         item.CarbsG,
		}
	}
	return out
}
