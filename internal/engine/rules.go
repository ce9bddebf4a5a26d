package engine

import (
	"fmt"
	"math"
)

// SlotSpec binds a slot to the pool it draws from.
type SlotSpec struct {
	Slot     SlotType
	Pool     string
	Optional bool
}

// PoolRule holds the variety and mix constraints of one pool.
// Zero values disable the corresponding bound.
type PoolRule struct {
	// SameDayExclusive forbids one recipe filling two slots of the same day.
	SameDayExclusive bool
	MinUnique        int
	MaxUnique        int
	MaxRepeats       int
	// SubtypeMin is the weekly minimum usage per subtype tag.
	SubtypeMin map[string]int
}

func (r PoolRule) tracksUnique() bool {
	return r.MinUnique > 0 || r.MaxUnique > 0
}

// Rules configures a planning run.
type Rules struct {
	// Slots in output order within a day.
	Slots            []SlotSpec
	CalorieTolerance float64
	ProteinTolerance float64
	// OptionalDays is how many days each optional slot is filled.
	OptionalDays int
	Pools        map[string]PoolRule
}

// DefaultRules is the standard vegan week: three meals, two snacks and
// dessert on three non-consecutive days.
func DefaultRules() Rules {
	return Rules{
		Slots: []SlotSpec{
			{Slot: SlotBreakfast, Pool: PoolBreakfast},
			{Slot: SlotAMSnack, Pool: PoolSnack},
			{Slot: SlotLunch, Pool: PoolMain},
			{Slot: SlotPMSnack, Pool: PoolSnack},
			{Slot: SlotDinner, Pool: PoolMain},
			{Slot: SlotDessert, Pool: PoolDessert, Optional: true},
		},
		CalorieTolerance: 250,
		ProteinTolerance: 10,
		OptionalDays:     3,
		Pools: map[string]PoolRule{
			PoolMain: {
				SameDayExclusive: true,
				MinUnique:        3,
				MaxUnique:        4,
				MaxRepeats:       4,
			},
			PoolSnack: {
				SubtypeMin: map[string]int{
					SubtypeSolid:    4,
					SubtypeSmoothie: 2,
					SubtypeDrink:    2,
				},
			},
		},
	}
}

// Validate checks the rule set is usable before any model is built.
func (r Rules) Validate() error {
	if len(r.Slots) == 0 {
		return &ValidationError{Field: "rules.slots", Reason: "no slots configured"}
	}
	seen := make(map[SlotType]bool, len(r.Slots))
	for _, s := range r.Slots {
		if s.Slot == "" || s.Pool == "" {
			return &ValidationError{Field: "rules.slots", Reason: "slot and pool names are required"}
		}
		if seen[s.Slot] {
			return &ValidationError{Field: "rules.slots", Reason: fmt.Sprintf("duplicate slot %s", s.Slot)}
		}
		seen[s.Slot] = true
	}
	if r.CalorieTolerance < 0 || r.ProteinTolerance < 0 {
		return &ValidationError{Field: "rules.tolerance", Reason: "must not be negative"}
	}
	if r.OptionalDays < 0 || r.OptionalDays > Days {
		return &ValidationError{Field: "rules.optional_days", Reason: fmt.Sprintf("must be within 0..%d", Days)}
	}
	for name, p := range r.Pools {
		if p.MinUnique < 0 || p.MaxUnique < 0 || p.MaxRepeats < 0 {
			return &ValidationError{Field: "rules.pools." + name, Reason: "bounds must not be negative"}
		}
		if p.MaxUnique > 0 && p.MinUnique > p.MaxUnique {
			return &ValidationError{Field: "rules.pools." + name, Reason: "min_unique exceeds max_unique"}
		}
		for sub, floor := range p.SubtypeMin {
			if floor < 0 {
				return &ValidationError{Field: "rules.pools." + name + ".subtype_min." + sub, Reason: "must not be negative"}
			}
		}
	}
	return nil
}

// Validate checks both targets are finite and positive.
func (t NutritionTarget) Validate() error {
	if math.IsNaN(t.Calories) || math.IsInf(t.Calories, 0) || t.Calories <= 0 {
		return &ValidationError{Field: "target.calories", Reason: "must be a positive number"}
	}
	if math.IsNaN(t.Protein) || math.IsInf(t.Protein, 0) || t.Protein <= 0 {
		return &ValidationError{Field: "target.protein", Reason: "must be a positive number"}
	}
	return nil
}
