package planning

import (
	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/engine"
)

// RulesFromConfig applies the planner settings on top of engine.DefaultRules.
func RulesFromConfig(p config.PlannerConfig) (engine.Rules, error) {
	rules := engine.DefaultRules()
	rules.CalorieTolerance = p.CalorieTolerance
	rules.ProteinTolerance = p.ProteinTolerance
	rules.OptionalDays = p.DessertDays

	main := rules.Pools[engine.PoolMain]
	main.MinUnique = p.MinUniqueMains
	main.MaxUnique = p.MaxUniqueMains
	main.MaxRepeats = p.MaxRepeatsMain
	rules.Pools[engine.PoolMain] = main

	snack := rules.Pools[engine.PoolSnack]
	snack.SubtypeMin = map[string]int{
		engine.SubtypeSolid:    p.MinSolidSnacks,
		engine.SubtypeSmoothie: p.MinSmoothies,
		engine.SubtypeDrink:    p.MinDrinks,
	}
	rules.Pools[engine.PoolSnack] = snack

	if err := rules.Validate(); err != nil {
		return engine.Rules{}, err
	}
	return rules, nil
}
