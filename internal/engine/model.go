package engine

import (
	"fmt"
	"sort"

	"github.com/fdg312/mealweek/internal/solver"
)

// ModelStats describes a built model.
type ModelStats struct {
	Variables   int
	Constraints int
	PoolSizes   map[string]int
}

// model is the variable space of one planning run.
type model struct {
	s     solver.Solver
	rules Rules
	pools *RecipePoolSet

	// x[d][k][i] selects pool index i for slot k on day d.
	x [Days][][]solver.Var
	// has[d][k] is the day indicator of optional slot k; zero for mandatory slots.
	has [Days][]solver.Var
	// used[pool][i] is set iff index i of a unique-tracked pool is used at all.
	used map[string][]solver.Var
}

// checkInputs runs every check that must pass before a model exists.
func checkInputs(pools *RecipePoolSet, target NutritionTarget, rules Rules) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if err := rules.Validate(); err != nil {
		return err
	}
	for _, spec := range rules.Slots {
		if !spec.Optional && len(pools.Pool(spec.Pool)) == 0 {
			return &InsufficientPoolError{Slot: spec.Slot, Pool: spec.Pool}
		}
	}
	return nil
}

// buildModel declares variables and constraints for pools and target on s.
// Inputs must have passed checkInputs.
func buildModel(s solver.Solver, pools *RecipePoolSet, target NutritionTarget, rules Rules) *model {
	m := &model{s: s, rules: rules, pools: pools, used: make(map[string][]solver.Var)}
	m.declare()
	m.addOccupancy()
	m.addCadence()
	m.addExclusivity()
	m.addNutritionBand(target)
	m.addUsage()
	m.addSubtypeMinimums()
	s.SetObjective(nil, 0)
	return m
}

func (m *model) declare() {
	for d := 0; d < Days; d++ {
		m.x[d] = make([][]solver.Var, len(m.rules.Slots))
		m.has[d] = make([]solver.Var, len(m.rules.Slots))
		for k, spec := range m.rules.Slots {
			pool := m.pools.Pool(spec.Pool)
			vars := make([]solver.Var, len(pool))
			for i := range pool {
				vars[i] = m.s.NewBinary(fmt.Sprintf("x_d%d_%s_%d", d, spec.Slot, i))
			}
			m.x[d][k] = vars
			if spec.Optional {
				m.has[d][k] = m.s.NewBinary(fmt.Sprintf("has_d%d_%s", d, spec.Slot))
			}
		}
	}
	for _, name := range m.poolNames() {
		rule := m.rules.Pools[name]
		if !rule.tracksUnique() {
			continue
		}
		pool := m.pools.Pool(name)
		vars := make([]solver.Var, len(pool))
		for i := range pool {
			vars[i] = m.s.NewBinary(fmt.Sprintf("used_%s_%d", name, i))
		}
		m.used[name] = vars
	}
}

// addOccupancy fills every mandatory slot once a day and ties optional slots
// to their day indicator.
func (m *model) addOccupancy() {
	for d := 0; d < Days; d++ {
		for k, spec := range m.rules.Slots {
			terms := solver.Sum(m.x[d][k]...)
			if spec.Optional {
				terms = append(terms, solver.Term{Var: m.has[d][k], Coef: -1})
				m.s.AddConstraint(terms, solver.EQ, 0)
				continue
			}
			m.s.AddConstraint(terms, solver.EQ, 1)
		}
	}
}

// addCadence fixes the number of optional days and keeps them apart.
func (m *model) addCadence() {
	for k, spec := range m.rules.Slots {
		if !spec.Optional {
			continue
		}
		week := make([]solver.Var, Days)
		for d := 0; d < Days; d++ {
			week[d] = m.has[d][k]
		}
		m.s.AddConstraint(solver.Sum(week...), solver.EQ, float64(m.rules.OptionalDays))
		for d := 0; d+1 < Days; d++ {
			m.s.AddConstraint(solver.Sum(week[d], week[d+1]), solver.LE, 1)
		}
	}
}

// addExclusivity keeps one recipe out of two same-day slots sharing a pool.
func (m *model) addExclusivity() {
	for _, name := range m.poolNames() {
		if !m.rules.Pools[name].SameDayExclusive {
			continue
		}
		slots := m.slotsOf(name)
		if len(slots) < 2 {
			continue
		}
		for d := 0; d < Days; d++ {
			for i := range m.pools.Pool(name) {
				vars := make([]solver.Var, 0, len(slots))
				for _, k := range slots {
					vars = append(vars, m.x[d][k][i])
				}
				m.s.AddConstraint(solver.Sum(vars...), solver.LE, 1)
			}
		}
	}
}

// addNutritionBand bounds daily calories on both sides and protein from below.
func (m *model) addNutritionBand(target NutritionTarget) {
	for d := 0; d < Days; d++ {
		var kcal, protein []solver.Term
		for k, spec := range m.rules.Slots {
			for i, rec := range m.pools.Pool(spec.Pool) {
				v := m.x[d][k][i]
				kcal = append(kcal, solver.Term{Var: v, Coef: float64(rec.Calories)})
				protein = append(protein, solver.Term{Var: v, Coef: float64(rec.Protein)})
			}
		}
		m.s.AddConstraint(kcal, solver.GE, target.Calories-m.rules.CalorieTolerance)
		m.s.AddConstraint(kcal, solver.LE, target.Calories+m.rules.CalorieTolerance)
		m.s.AddConstraint(protein, solver.GE, target.Protein-m.rules.ProteinTolerance)
	}
}

// addUsage caps weekly repeats and links the used indicators by big-M.
func (m *model) addUsage() {
	for _, name := range m.poolNames() {
		rule := m.rules.Pools[name]
		if rule.MaxRepeats == 0 && !rule.tracksUnique() {
			continue
		}
		slots := m.slotsOf(name)
		bigM := float64(Days * len(slots))

		for i := range m.pools.Pool(name) {
			usage := m.usageTerms(slots, i)
			if rule.MaxRepeats > 0 {
				m.s.AddConstraint(usage, solver.LE, float64(rule.MaxRepeats))
			}
			if !rule.tracksUnique() {
				continue
			}
			used := m.used[name][i]
			// u <= M*used
			upper := append(append([]solver.Term(nil), usage...), solver.Term{Var: used, Coef: -bigM})
			m.s.AddConstraint(upper, solver.LE, 0)
			// used <= u
			lower := []solver.Term{{Var: used, Coef: 1}}
			for _, t := range usage {
				lower = append(lower, solver.Term{Var: t.Var, Coef: -1})
			}
			m.s.AddConstraint(lower, solver.LE, 0)
		}

		if !rule.tracksUnique() {
			continue
		}
		distinct := solver.Sum(m.used[name]...)
		if rule.MinUnique > 0 {
			m.s.AddConstraint(distinct, solver.GE, float64(rule.MinUnique))
		}
		if rule.MaxUnique > 0 {
			m.s.AddConstraint(distinct, solver.LE, float64(rule.MaxUnique))
		}
	}
}

// addSubtypeMinimums enforces weekly floors per subtype. A subtype with no
// candidates yields an empty sum, which no assignment can satisfy.
func (m *model) addSubtypeMinimums() {
	for _, name := range m.poolNames() {
		rule := m.rules.Pools[name]
		if len(rule.SubtypeMin) == 0 {
			continue
		}
		slots := m.slotsOf(name)
		subtypes := make([]string, 0, len(rule.SubtypeMin))
		for sub := range rule.SubtypeMin {
			subtypes = append(subtypes, sub)
		}
		sort.Strings(subtypes)

		for _, sub := range subtypes {
			floor := rule.SubtypeMin[sub]
			if floor == 0 {
				continue
			}
			var terms []solver.Term
			for i, rec := range m.pools.Pool(name) {
				if rec.Subtype == sub {
					terms = append(terms, m.usageTerms(slots, i)...)
				}
			}
			m.s.AddConstraint(terms, solver.GE, float64(floor))
		}
	}
}

// usageTerms sums index i of a pool over every day and every slot drawing from it.
func (m *model) usageTerms(slots []int, i int) []solver.Term {
	terms := make([]solver.Term, 0, Days*len(slots))
	for d := 0; d < Days; d++ {
		for _, k := range slots {
			terms = append(terms, solver.Term{Var: m.x[d][k][i], Coef: 1})
		}
	}
	return terms
}

// slotsOf returns the slot positions drawing from pool.
func (m *model) slotsOf(pool string) []int {
	var out []int
	for k, spec := range m.rules.Slots {
		if spec.Pool == pool {
			out = append(out, k)
		}
	}
	return out
}

// poolNames lists ruled pools that at least one slot draws from, sorted.
func (m *model) poolNames() []string {
	names := make([]string, 0, len(m.rules.Pools))
	for name := range m.rules.Pools {
		if len(m.slotsOf(name)) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (m *model) stats() ModelStats {
	return ModelStats{
		Variables:   m.s.NumVars(),
		Constraints: m.s.NumConstraints(),
		PoolSizes:   m.pools.Sizes(),
	}
}
