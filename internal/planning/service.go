package planning

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fdg312/mealweek/internal/engine"
	"github.com/fdg312/mealweek/internal/storage"
)

var ErrTargetsNotFound = errors.New("nutrition targets not set")

// TargetsReader loads a user's nutrition targets; (nil, nil) when unset.
type TargetsReader interface {
	Get(ctx context.Context, userID string) (*storage.NutritionTarget, error)
}

// PlanWriter replaces a user's active plan.
type PlanWriter interface {
	ReplaceActive(ctx context.Context, userID string, header storage.MealPlanHeader, items []storage.MealPlanItemUpsert) (storage.MealPlan, []storage.MealPlanItem, error)
}

// Pools supplies candidate pools for one run.
type Pools interface {
	AssemblePools(ctx context.Context) (*engine.RecipePoolSet, error)
}

// Planner is the subset of *engine.Engine the service needs.
type Planner interface {
	Plan(ctx context.Context, pools *engine.RecipePoolSet, target engine.NutritionTarget) (engine.WeeklyPlan, error)
}

type GenerateResult struct {
	Plan      storage.MealPlan
	Items     []storage.MealPlanItem
	Week      engine.WeeklyPlan
	PoolSizes map[string]int
	Elapsed   time.Duration
}

// Service generates and stores weekly plans.
type Service struct {
	targets      TargetsReader
	plans        PlanWriter
	pools        Pools
	planner      Planner
	solveTimeout time.Duration
}

func NewService(targets TargetsReader, plans PlanWriter, pools Pools, planner Planner, solveTimeout time.Duration) *Service {
	return &Service{
		targets:      targets,
		plans:        plans,
		pools:        pools,
		planner:      planner,
		solveTimeout: solveTimeout,
	}
}

// Generate builds a new week for userID and replaces the active plan.
// Errors are ErrTargetsNotFound, *provider.RecipeFetchError, the engine's
// typed errors, or wrapped storage failures. Nothing is stored on failure.
func (s *Service) Generate(ctx context.Context, userID string) (*GenerateResult, error) {
	start := time.Now()

	t, err := s.targets.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nutrition targets: %w", err)
	}
	if t == nil {
		return nil, ErrTargetsNotFound
	}

	pools, err := s.pools.AssemblePools(ctx)
	if err != nil {
		return nil, err
	}

	target := engine.NutritionTarget{Calories: float64(t.CaloriesKcal), Protein: float64(t.ProteinG)}
	week, err := s.solve(ctx, pools, target)
	if err != nil {
		log.Printf("WARN planning: user=%s calories=%d protein=%d pools=%v err=%v", userID, t.CaloriesKcal, t.ProteinG, pools.Sizes(), err)
		return nil, err
	}

	elapsed := time.Since(start)
	header := storage.MealPlanHeader{
		Title:           fmt.Sprintf("Week plan %d kcal / %d g protein", t.CaloriesKcal, t.ProteinG),
		TargetCalories:  t.CaloriesKcal,
		TargetProteinG:  t.ProteinG,
		SolveDurationMs: elapsed.Milliseconds(),
	}
	plan, items, err := s.plans.ReplaceActive(ctx, userID, header, ItemsFromWeek(week))
	if err != nil {
		return nil, fmt.Errorf("failed to store meal plan: %w", err)
	}

	log.Printf("INFO planning: user=%s plan=%s items=%d duration=%s", userID, plan.ID, len(items), elapsed.Round(time.Millisecond))
	return &GenerateResult{
		Plan:      plan,
		Items:     items,
		Week:      week,
		PoolSizes: pools.Sizes(),
		Elapsed:   elapsed,
	}, nil
}

func (s *Service) solve(ctx context.Context, pools *engine.RecipePoolSet, target engine.NutritionTarget) (engine.WeeklyPlan, error) {
	if s.solveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.solveTimeout)
		defer cancel()
	}
	return s.planner.Plan(ctx, pools, target)
}

// ItemsFromWeek converts assignments into storable rows, keeping their order.
func ItemsFromWeek(week engine.WeeklyPlan) []storage.MealPlanItemUpsert {
	items := make([]storage.MealPlanItemUpsert, 0, len(week))
	for _, a := range week {
		r := a.Recipe
		items = append(items, storage.MealPlanItemUpsert{
			DayIndex:       a.Day,
			MealSlot:       string(a.Slot),
			RecipeID:       r.ID,
			Title:          r.Title,
			ImageURL:       r.Image,
			ReadyInMinutes: r.ReadyInMinutes,
			Servings:       r.Servings,
			Subtype:        r.Subtype,
			CaloriesKcal:   r.Calories,
			ProteinG:       r.Protein,
			FatG:           r.Fat,
			CarbsG:         r.Carbs,
		})
	}
	return items
}
