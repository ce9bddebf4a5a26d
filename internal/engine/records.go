package engine

import (
	"encoding/json"
	"sort"
)

// Days is the length of a planning horizon.
const Days = 7

// SlotType names a position in the daily schedule.
type SlotType string

const (
	SlotBreakfast SlotType = "breakfast"
	SlotAMSnack   SlotType = "am_snack"
	SlotLunch     SlotType = "lunch"
	SlotPMSnack   SlotType = "pm_snack"
	SlotDinner    SlotType = "dinner"
	SlotDessert   SlotType = "dessert"
)

// Pool categories.
const (
	PoolBreakfast = "breakfast"
	PoolMain      = "main"
	PoolSnack     = "snack"
	PoolDessert   = "dessert"
)

// Snack subtypes.
const (
	SubtypeSolid    = "solid"
	SubtypeSmoothie = "smoothie"
	SubtypeDrink    = "drink"
)

// RawNutrient is one named nutrient amount as reported by a recipe provider.
type RawNutrient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// RawRecipe is a provider recipe before normalization.
type RawRecipe struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Image          *string       `json:"image,omitempty"`
	ReadyInMinutes *int          `json:"readyInMinutes,omitempty"`
	Servings       *int          `json:"servings,omitempty"`
	Nutrients      []RawNutrient `json:"nutrients,omitempty"`
}

// RecipeRecord is the compact nutrient summary the planner works with.
// Values are never mutated after normalization.
type RecipeRecord struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Image          *string `json:"image,omitempty"`
	Calories       int     `json:"calories"`
	Protein        int     `json:"protein"`
	Fat            int     `json:"fat"`
	Carbs          int     `json:"carbs"`
	ReadyInMinutes *int    `json:"readyInMinutes,omitempty"`
	Servings       *int    `json:"servings,omitempty"`
	Subtype        string  `json:"subtype,omitempty"`
}

// WithSubtype returns a copy tagged with subtype.
func (r RecipeRecord) WithSubtype(subtype string) RecipeRecord {
	r.Subtype = subtype
	return r
}

// NutritionTarget is the per-day goal a plan is built against.
type NutritionTarget struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
}

// RecipePoolSet maps a pool category to its ordered candidates.
type RecipePoolSet struct {
	pools map[string][]RecipeRecord
	seen  map[string]map[string]struct{}
}

func NewRecipePoolSet() *RecipePoolSet {
	return &RecipePoolSet{
		pools: make(map[string][]RecipeRecord),
		seen:  make(map[string]map[string]struct{}),
	}
}

// Add appends records to a category. A record whose ID is already in the
// category is dropped, so the first occurrence wins. It returns how many
// records were added.
func (p *RecipePoolSet) Add(category string, records ...RecipeRecord) int {
	ids, ok := p.seen[category]
	if !ok {
		ids = make(map[string]struct{})
		p.seen[category] = ids
	}
	if _, ok := p.pools[category]; !ok {
		p.pools[category] = nil
	}

	added := 0
	for _, r := range records {
		if _, dup := ids[r.ID]; dup {
			continue
		}
		ids[r.ID] = struct{}{}
		p.pools[category] = append(p.pools[category], r)
		added++
	}
	return added
}

// Pool returns the candidates of a category, nil when unknown.
func (p *RecipePoolSet) Pool(category string) []RecipeRecord {
	if p == nil {
		return nil
	}
	return p.pools[category]
}

// Sizes reports the number of candidates per category.
func (p *RecipePoolSet) Sizes() map[string]int {
	sizes := make(map[string]int, len(p.pools))
	for name, recs := range p.pools {
		sizes[name] = len(recs)
	}
	return sizes
}

// Categories lists category names in sorted order.
func (p *RecipePoolSet) Categories() []string {
	names := make([]string, 0, len(p.pools))
	for name := range p.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SlotAssignment is one filled slot of a plan.
type SlotAssignment struct {
	Day    int
	Slot   SlotType
	Recipe RecipeRecord
}

// MarshalJSON flattens the recipe snapshot next to day and type.
func (a SlotAssignment) MarshalJSON() ([]byte, error) {
	type flat struct {
		Day  int      `json:"day"`
		Type SlotType `json:"type"`
		RecipeRecord
	}
	return json.Marshal(flat{Day: a.Day, Type: a.Slot, RecipeRecord: a.Recipe})
}

// WeeklyPlan lists assignments day-major, in slot order within a day.
type WeeklyPlan []SlotAssignment

// DayTotals aggregates nutrients of one day.
type DayTotals struct {
	Day      int `json:"day"`
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Fat      int `json:"fat"`
	Carbs    int `json:"carbs"`
}

// ByDay groups assignments per day index.
func (p WeeklyPlan) ByDay() [Days][]SlotAssignment {
	var out [Days][]SlotAssignment
	for _, a := range p {
		if a.Day >= 0 && a.Day < Days {
			out[a.Day] = append(out[a.Day], a)
		}
	}
	return out
}

// Totals sums nutrients per day.
func (p WeeklyPlan) Totals() [Days]DayTotals {
	var out [Days]DayTotals
	for d := range out {
		out[d].Day = d
	}
	for _, a := range p {
		if a.Day < 0 || a.Day >= Days {
			continue
		}
		t := &out[a.Day]
		t.Calories += a.Recipe.Calories
		t.Protein += a.Recipe.Protein
		t.Fat += a.Recipe.Fat
		t.Carbs += a.Recipe.Carbs
	}
	return out
}
