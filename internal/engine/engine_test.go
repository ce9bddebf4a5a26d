package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fdg312/mealweek/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultTarget = NutritionTarget{Calories: 2000, Protein: 80}

func recipe(id string, kcal, protein int) RecipeRecord {
	return RecipeRecord{ID: id, Title: "Recipe " + id, Calories: kcal, Protein: protein, Fat: 12, Carbs: 40}
}

// weekPools builds pools where breakfast + two snacks + two mains is 1900 kcal
// and 80 g protein, and a dessert adds 200 kcal.
func weekPools(mains int, smoothies int) *RecipePoolSet {
	p := NewRecipePoolSet()
	for i := 0; i < 10; i++ {
		p.Add(PoolBreakfast, recipe(fmt.Sprintf("b%d", i), 400, 10))
	}
	for i := 0; i < mains; i++ {
		p.Add(PoolMain, recipe(fmt.Sprintf("m%d", i), 600, 30))
	}
	for i := 0; i < 6; i++ {
		p.Add(PoolSnack, recipe(fmt.Sprintf("s%d", i), 150, 5).WithSubtype(SubtypeSolid))
	}
	for i := 0; i < smoothies; i++ {
		p.Add(PoolSnack, recipe(fmt.Sprintf("sm%d", i), 150, 5).WithSubtype(SubtypeSmoothie))
	}
	for i := 0; i < 4; i++ {
		p.Add(PoolSnack, recipe(fmt.Sprintf("dr%d", i), 150, 5).WithSubtype(SubtypeDrink))
	}
	for i := 0; i < 5; i++ {
		p.Add(PoolDessert, recipe(fmt.Sprintf("d%d", i), 200, 2))
	}
	return p
}

func slotIndex(rules Rules, slot SlotType) int {
	for k, s := range rules.Slots {
		if s.Slot == slot {
			return k
		}
	}
	return -1
}

// assertWeek checks every plan property against rules and target.
func assertWeek(t *testing.T, plan WeeklyPlan, rules Rules, target NutritionTarget) {
	t.Helper()

	lastDay, lastSlot := -1, -1
	for _, a := range plan {
		k := slotIndex(rules, a.Slot)
		require.GreaterOrEqual(t, k, 0, "unknown slot %s", a.Slot)
		if a.Day == lastDay {
			assert.Greater(t, k, lastSlot, "slot order within day %d", a.Day)
		} else {
			assert.Greater(t, a.Day, lastDay, "days are ordered")
		}
		lastDay, lastSlot = a.Day, k
	}

	byDay := plan.ByDay()
	optionalDays := make(map[SlotType][]int)
	for d := 0; d < Days; d++ {
		counts := make(map[SlotType]int)
		for _, a := range byDay[d] {
			counts[a.Slot]++
		}
		for _, spec := range rules.Slots {
			if spec.Optional {
				assert.LessOrEqual(t, counts[spec.Slot], 1)
				if counts[spec.Slot] == 1 {
					optionalDays[spec.Slot] = append(optionalDays[spec.Slot], d)
				}
				continue
			}
			assert.Equal(t, 1, counts[spec.Slot], "day %d slot %s", d, spec.Slot)
		}
	}

	for _, spec := range rules.Slots {
		if !spec.Optional {
			continue
		}
		days := optionalDays[spec.Slot]
		assert.Len(t, days, rules.OptionalDays, "optional slot %s", spec.Slot)
		for i := 1; i < len(days); i++ {
			assert.Greater(t, days[i]-days[i-1], 1, "optional slot %s on adjacent days", spec.Slot)
		}
	}

	for _, tot := range plan.Totals() {
		assert.GreaterOrEqual(t, float64(tot.Calories), target.Calories-rules.CalorieTolerance, "day %d calories", tot.Day)
		assert.LessOrEqual(t, float64(tot.Calories), target.Calories+rules.CalorieTolerance, "day %d calories", tot.Day)
		assert.GreaterOrEqual(t, float64(tot.Protein), target.Protein-rules.ProteinTolerance, "day %d protein", tot.Day)
	}

	for pool, rule := range rules.Pools {
		usage := make(map[string]int)
		subtypeUsage := make(map[string]int)
		for d := 0; d < Days; d++ {
			ids := make(map[string]bool)
			for _, a := range byDay[d] {
				if rules.Slots[slotIndex(rules, a.Slot)].Pool != pool {
					continue
				}
				if rule.SameDayExclusive {
					assert.False(t, ids[a.Recipe.ID], "day %d repeats %s", d, a.Recipe.ID)
				}
				ids[a.Recipe.ID] = true
				usage[a.Recipe.ID]++
				subtypeUsage[a.Recipe.Subtype]++
			}
		}
		if rule.MinUnique > 0 {
			assert.GreaterOrEqual(t, len(usage), rule.MinUnique, "pool %s distinct", pool)
		}
		if rule.MaxUnique > 0 {
			assert.LessOrEqual(t, len(usage), rule.MaxUnique, "pool %s distinct", pool)
		}
		if rule.MaxRepeats > 0 {
			for id, n := range usage {
				assert.LessOrEqual(t, n, rule.MaxRepeats, "recipe %s repeats", id)
			}
		}
		for sub, floor := range rule.SubtypeMin {
			assert.GreaterOrEqual(t, subtypeUsage[sub], floor, "pool %s subtype %s", pool, sub)
		}
	}
}

func TestPlan_FeasibleWeek(t *testing.T) {
	pools := weekPools(15, 4)
	// Too heavy for any day inside the band.
	pools.Add(PoolMain, recipe("m-heavy", 1500, 45))

	e := New()
	plan, err := e.Plan(context.Background(), pools, defaultTarget)
	require.NoError(t, err)

	assertWeek(t, plan, e.Rules(), defaultTarget)
	assert.Len(t, plan, Days*5+3)

	days := make(map[int]bool)
	for _, a := range plan {
		days[a.Day] = true
		assert.NotEqual(t, "m-heavy", a.Recipe.ID)
	}
	assert.Len(t, days, Days)
}

func TestPlan_TooFewDistinctMains(t *testing.T) {
	_, err := New().Plan(context.Background(), weekPools(2, 4), defaultTarget)

	var infeasible *InfeasiblePlanError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, solver.StatusInfeasible, infeasible.Status)
}

func TestPlan_EmptySmoothieSubtype(t *testing.T) {
	_, err := New().Plan(context.Background(), weekPools(15, 0), defaultTarget)

	var infeasible *InfeasiblePlanError
	require.ErrorAs(t, err, &infeasible)
}

func TestPlan_InvalidTargetBuildsNothing(t *testing.T) {
	calls := 0
	e := New(WithSolverFactory(func() solver.Solver {
		calls++
		return solver.NewGophersat()
	}))

	for _, target := range []NutritionTarget{
		{Calories: -5, Protein: 80},
		{Calories: 2000, Protein: 0},
	} {
		_, err := e.Plan(context.Background(), weekPools(15, 4), target)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}
	assert.Zero(t, calls)
}

func TestPlan_SingleMainUnderRepeatCap(t *testing.T) {
	_, err := New().Plan(context.Background(), weekPools(1, 4), defaultTarget)
	var infeasible *InfeasiblePlanError
	require.ErrorAs(t, err, &infeasible)

	// Without the uniqueness and same-day rules, only the repeat cap stands
	// between 14 main slots and a single recipe.
	rules := DefaultRules()
	rules.Pools[PoolMain] = PoolRule{MaxRepeats: 4}
	_, err = New(WithRules(rules)).Plan(context.Background(), weekPools(1, 4), defaultTarget)
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, solver.StatusInfeasible, infeasible.Status)
}

func TestPlan_EmptyMandatoryPool(t *testing.T) {
	calls := 0
	e := New(WithSolverFactory(func() solver.Solver {
		calls++
		return solver.NewGophersat()
	}))

	pools := weekPools(15, 4)
	pools.pools[PoolBreakfast] = nil

	_, err := e.Plan(context.Background(), pools, defaultTarget)

	var insufficient *InsufficientPoolError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, SlotBreakfast, insufficient.Slot)
	assert.Equal(t, PoolBreakfast, insufficient.Pool)
	assert.Zero(t, calls)

	_, err = e.Plan(context.Background(), nil, defaultTarget)
	require.ErrorAs(t, err, &insufficient)
}

func TestPlan_EmptyOptionalPoolIsInfeasible(t *testing.T) {
	pools := weekPools(15, 4)
	pools.pools[PoolDessert] = nil

	_, err := New().Plan(context.Background(), pools, defaultTarget)

	var infeasible *InfeasiblePlanError
	require.ErrorAs(t, err, &infeasible)
	var insufficient *InsufficientPoolError
	assert.False(t, errors.As(err, &insufficient))
}

func TestPlan_NoOptionalDays(t *testing.T) {
	rules := DefaultRules()
	rules.OptionalDays = 0

	plan, err := New(WithRules(rules)).Plan(context.Background(), weekPools(15, 4), defaultTarget)
	require.NoError(t, err)

	assertWeek(t, plan, rules, defaultTarget)
	for _, a := range plan {
		assert.NotEqual(t, SlotDessert, a.Slot)
	}
}

func TestPlan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Plan(ctx, weekPools(15, 4), defaultTarget)

	var infeasible *InfeasiblePlanError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, solver.StatusError, infeasible.Status)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlan_SnapshotsRecipes(t *testing.T) {
	pools := weekPools(15, 4)

	plan, err := New().Plan(context.Background(), pools, defaultTarget)
	require.NoError(t, err)

	before := plan.Totals()
	for i := range pools.pools[PoolMain] {
		pools.pools[PoolMain][i].Calories = 9999
	}
	assert.Equal(t, before, plan.Totals())
}

type recordingObserver struct {
	mu       sync.Mutex
	stats    []ModelStats
	statuses []solver.Status
}

func (o *recordingObserver) ModelBuilt(stats ModelStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = append(o.stats, stats)
}

func (o *recordingObserver) Solved(status solver.Status, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func TestPlan_ObserverAndConcurrentRuns(t *testing.T) {
	obs := &recordingObserver{}
	e := New(WithObserver(obs))

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Plan(context.Background(), weekPools(15, 4), defaultTarget)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.Len(t, obs.stats, 3)
	require.Len(t, obs.statuses, 3)
	for i := range obs.stats {
		assert.Greater(t, obs.stats[i].Variables, 0)
		assert.Greater(t, obs.stats[i].Constraints, 0)
		assert.Equal(t, 15, obs.stats[i].PoolSizes[PoolMain])
		assert.Equal(t, solver.StatusOptimal, obs.statuses[i])
	}
}

// bandPools has a feasible week only for some combinations: mains differ in
// calories and protein, and m-fried overshoots the calorie ceiling on any day.
func bandPools() *RecipePoolSet {
	p := NewRecipePoolSet()
	p.Add(PoolBreakfast, recipe("b-lean", 350, 22))
	p.Add(PoolBreakfast, recipe("b-mid", 450, 12))
	p.Add(PoolBreakfast, recipe("b-pancake", 650, 6))

	p.Add(PoolMain, recipe("m0", 500, 30))
	p.Add(PoolMain, recipe("m1", 550, 28))
	p.Add(PoolMain, recipe("m2", 600, 26))
	p.Add(PoolMain, recipe("m3", 650, 24))
	p.Add(PoolMain, recipe("m4", 900, 10))
	p.Add(PoolMain, recipe("m5", 950, 8))
	p.Add(PoolMain, recipe("m-fried", 1250, 40))

	for i := 0; i < 3; i++ {
		p.Add(PoolSnack, recipe(fmt.Sprintf("s%d", i), 150, 6).WithSubtype(SubtypeSolid))
	}
	for i := 0; i < 2; i++ {
		p.Add(PoolSnack, recipe(fmt.Sprintf("sm%d", i), 220, 12).WithSubtype(SubtypeSmoothie))
		p.Add(PoolSnack, recipe(fmt.Sprintf("dr%d", i), 90, 2).WithSubtype(SubtypeDrink))
	}
	for i := 0; i < 3; i++ {
		p.Add(PoolDessert, recipe(fmt.Sprintf("d%d", i), 240, 3))
	}
	return p
}

// variedPools adds recipes with spread-out nutrients to bandPools, so the
// solver runs into conflicts while a feasible week still exists.
func variedPools(seed int) *RecipePoolSet {
	p := bandPools()
	for j := 0; j < 12; j++ {
		p.Add(PoolBreakfast, recipe(fmt.Sprintf("xb%d", j), 300+(j*53+seed*17)%260, 6+(j*7+seed)%18))
	}
	for j := 0; j < 30; j++ {
		p.Add(PoolMain, recipe(fmt.Sprintf("xm%d", j), 450+(j*71+seed*13)%500, 8+(j*11+seed*3)%32))
	}
	subtypes := []string{SubtypeSolid, SubtypeSmoothie, SubtypeDrink}
	for j := 0; j < 30; j++ {
		p.Add(PoolSnack, recipe(fmt.Sprintf("xs%d", j), 90+(j*29+seed*7)%150, 1+(j*5+seed)%12).WithSubtype(subtypes[j%3]))
	}
	for j := 0; j < 8; j++ {
		p.Add(PoolDessert, recipe(fmt.Sprintf("xd%d", j), 150+(j*31+seed*5)%150, 1+(j+seed)%4))
	}
	return p
}

func TestPlan_BandSelectsCombinations(t *testing.T) {
	e := New()
	plan, err := e.Plan(context.Background(), bandPools(), defaultTarget)
	require.NoError(t, err)

	assertWeek(t, plan, e.Rules(), defaultTarget)
	for _, a := range plan {
		assert.NotEqual(t, "m-fried", a.Recipe.ID)
	}
}

func TestPlan_OutOfBandTargetIsInfeasible(t *testing.T) {
	tests := []struct {
		name   string
		target NutritionTarget
	}{
		// Best day: 10 + 5 + 5 + 30 + 30 + 2 = 82 g.
		{name: "protein floor", target: NutritionTarget{Calories: 2000, Protein: 150}},
		// Heaviest day: 400 + 150 + 150 + 600 + 600 + 200 = 2100 kcal.
		{name: "calorie floor", target: NutritionTarget{Calories: 3000, Protein: 80}},
		// Lightest day: 400 + 150 + 150 + 600 + 600 = 1900 kcal.
		{name: "calorie ceiling", target: NutritionTarget{Calories: 1500, Protein: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			_, err := New().Plan(ctx, weekPools(15, 4), tt.target)

			var infeasible *InfeasiblePlanError
			require.ErrorAs(t, err, &infeasible)
			assert.Equal(t, solver.StatusInfeasible, infeasible.Status)
			assert.NoError(t, ctx.Err(), "answer must not wait for the deadline")
		})
	}
}

func TestPlan_ConcurrentRunsWithVariedNutrients(t *testing.T) {
	e := New()

	const runs = 4
	plans := make([]WeeklyPlan, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plans[i], errs[i] = e.Plan(context.Background(), variedPools(i), defaultTarget)
		}(i)
	}
	wg.Wait()

	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i], "run %d", i)
		assertWeek(t, plans[i], e.Rules(), defaultTarget)
	}
}

type erroringSolver struct {
	*solver.Gophersat
}

func (erroringSolver) Solve(context.Context) solver.Status { return solver.StatusError }
func (erroringSolver) Status() solver.Status               { return solver.StatusError }

func TestPlan_SolverErrorIsInfeasible(t *testing.T) {
	e := New(WithSolverFactory(func() solver.Solver {
		return erroringSolver{Gophersat: solver.NewGophersat()}
	}))

	_, err := e.Plan(context.Background(), weekPools(15, 4), defaultTarget)

	var infeasible *InfeasiblePlanError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, solver.StatusError, infeasible.Status)
}

func TestRulesValidate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.Pools[PoolMain] = PoolRule{MinUnique: 5, MaxUnique: 4}
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.Slots = append(r.Slots, SlotSpec{Slot: SlotLunch, Pool: PoolMain})
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.OptionalDays = 8
	assert.Error(t, r.Validate())
}

func TestSlotAssignment_JSON(t *testing.T) {
	a := SlotAssignment{Day: 2, Slot: SlotLunch, Recipe: recipe("m1", 600, 30)}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(2), got["day"])
	assert.Equal(t, "lunch", got["type"])
	assert.Equal(t, "m1", got["id"])
	assert.Equal(t, float64(600), got["calories"])
	assert.NotContains(t, got, "image")
	assert.NotContains(t, got, "servings")
}
