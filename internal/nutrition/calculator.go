package nutrition

import (
	"fmt"
	"math"
	"strings"
)

// Activity levels.
const (
	ActivitySedentary        = "sedentary"
	ActivityLightlyActive    = "lightly_active"
	ActivityModeratelyActive = "moderately_active"
	ActivityVeryActive       = "very_active"
	ActivityExtraActive      = "extra_active"
)

// Goals.
const (
	GoalWeightLoss  = "weight_loss"
	GoalMaintenance = "maintenance"
	GoalMuscleGain  = "muscle_gain"
)

var activityMultipliers = map[string]float64{
	ActivitySedentary:        1.2,
	ActivityLightlyActive:    1.375,
	ActivityModeratelyActive: 1.55,
	ActivityVeryActive:       1.725,
	ActivityExtraActive:      1.9,
}

var goalAdjustments = map[string]float64{
	GoalWeightLoss:  -500,
	GoalMaintenance: 0,
	GoalMuscleGain:  250,
}

// Intake is the result of the daily intake calculation.
type Intake struct {
	BMR          int
	TDEE         int
	CaloriesKcal int
	ProteinG     int
	FatG         int
	CarbsG       int
}

// Normalize lowercases the enum fields and fills defaults
// (lightly_active, maintenance).
func (r *CalculateRequest) Normalize() {
	r.Sex = strings.ToLower(strings.TrimSpace(r.Sex))
	r.ActivityLevel = strings.ToLower(strings.TrimSpace(r.ActivityLevel))
	r.Goal = strings.ToLower(strings.TrimSpace(r.Goal))
	if r.ActivityLevel == "" {
		r.ActivityLevel = ActivityLightlyActive
	}
	if r.Goal == "" {
		r.Goal = GoalMaintenance
	}
}

// Validate checks the body measurements and enum values.
func (r *CalculateRequest) Validate() error {
	if r.Sex != "male" && r.Sex != "female" {
		return fmt.Errorf("sex must be male or female")
	}
	if r.Age < 14 || r.Age > 100 {
		return fmt.Errorf("age must be between 14 and 100")
	}
	if r.HeightCm < 100 || r.HeightCm > 250 {
		return fmt.Errorf("height_cm must be between 100 and 250")
	}
	if r.WeightKg < 30 || r.WeightKg > 300 {
		return fmt.Errorf("weight_kg must be between 30 and 300")
	}
	if _, ok := activityMultipliers[r.ActivityLevel]; !ok {
		return fmt.Errorf("unknown activity_level %q", r.ActivityLevel)
	}
	if _, ok := goalAdjustments[r.Goal]; !ok {
		return fmt.Errorf("unknown goal %q", r.Goal)
	}
	return nil
}

// CalculateIntake applies Mifflin-St Jeor, the activity multiplier and the
// goal adjustment, then splits macros: protein per kg of body weight, fat at
// 30% of calories, carbs take the remainder.
func CalculateIntake(r CalculateRequest) Intake {
	bmr := 10*r.WeightKg + 6.25*r.HeightCm - 5*float64(r.Age)
	if r.Sex == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}

	tdee := bmr * activityMultipliers[r.ActivityLevel]
	calories := math.Round(tdee + goalAdjustments[r.Goal])

	perKg := 0.8
	switch r.ActivityLevel {
	case ActivityModeratelyActive:
		perKg = 1.0
	case ActivityVeryActive, ActivityExtraActive:
		perKg = 1.2
	}
	if r.Goal == GoalMuscleGain {
		perKg += 0.2
	}

	protein := math.Round(r.WeightKg * perKg)
	fat := math.Round(calories * 0.30 / 9)
	carbs := math.Max(0, math.Round((calories-protein*4-fat*9)/4))

	return Intake{
		BMR:          int(math.Round(bmr)),
		TDEE:         int(math.Round(tdee)),
		CaloriesKcal: int(calories),
		ProteinG:     int(protein),
		FatG:         int(fat),
		CarbsG:       int(carbs),
	}
}
