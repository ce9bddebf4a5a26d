// Package engine assigns recipes to the slots of a seven-day schedule.
//
// A run builds a 0/1 model over the candidate pools, solves it for any
// feasible point and reads the assignment back. The engine keeps no state
// between runs and never logs; callers observe it through Observer.
package engine

import (
	"context"
	"time"

	"github.com/fdg312/mealweek/internal/solver"
)

// Observer receives run diagnostics. Implementations must be safe for
// concurrent use when one Engine serves concurrent runs.
type Observer interface {
	ModelBuilt(stats ModelStats)
	Solved(status solver.Status, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ModelBuilt(ModelStats)               {}
func (nopObserver) Solved(solver.Status, time.Duration) {}

// Engine plans weeks with a fixed rule set.
type Engine struct {
	newSolver solver.Factory
	rules     Rules
	observer  Observer
}

type Option func(*Engine)

func WithRules(rules Rules) Option {
	return func(e *Engine) { e.rules = rules }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func WithSolverFactory(f solver.Factory) Option {
	return func(e *Engine) {
		if f != nil {
			e.newSolver = f
		}
	}
}

// New returns an Engine using DefaultRules and the gophersat backend unless
// overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		newSolver: solver.NewGophersatFactory(),
		rules:     DefaultRules(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rule set the engine plans with.
func (e *Engine) Rules() Rules { return e.rules }

// Plan produces a full week or a typed error: *ValidationError,
// *InsufficientPoolError or *InfeasiblePlanError. Partial plans are never
// returned. A deadline on ctx bounds the solve; hitting it is reported as
// *InfeasiblePlanError with status error.
func (e *Engine) Plan(ctx context.Context, pools *RecipePoolSet, target NutritionTarget) (WeeklyPlan, error) {
	if pools == nil {
		pools = NewRecipePoolSet()
	}

	if err := checkInputs(pools, target, e.rules); err != nil {
		return nil, err
	}

	s := e.newSolver()
	m := buildModel(s, pools, target, e.rules)
	e.observer.ModelBuilt(m.stats())

	start := time.Now()
	status := s.Solve(ctx)
	e.observer.Solved(status, time.Since(start))

	if status != solver.StatusOptimal {
		return nil, &InfeasiblePlanError{Status: status, Cause: solveCause(ctx, s)}
	}
	return m.extract(), nil
}

func solveCause(ctx context.Context, s solver.Solver) error {
	if withErr, ok := s.(interface{ Err() error }); ok {
		if err := withErr.Err(); err != nil {
			return err
		}
	}
	return ctx.Err()
}
