package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/mealweek/internal/storage"
	"github.com/google/uuid"
)

type activePlan struct {
	plan  storage.MealPlan
	items []storage.MealPlanItem // day-major, slot order as inserted
}

type mealPlansStorage struct {
	mu     sync.RWMutex
	active map[string]*activePlan // key: userID
}

func newMealPlansStorage() *mealPlansStorage {
	return &mealPlansStorage{
		active: make(map[string]*activePlan),
	}
}

func (s *mealPlansStorage) GetActive(ctx context.Context, userID string) (storage.MealPlan, []storage.MealPlanItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ap, ok := s.active[userID]
	if !ok {
		return storage.MealPlan{}, nil, false, nil
	}

	items := make([]storage.MealPlanItem, len(ap.items))
	copy(items, ap.items)
	return ap.plan, items, true, nil
}

func (s *mealPlansStorage) ReplaceActive(ctx context.Context, userID string, header storage.MealPlanHeader, itemsUpsert []storage.MealPlanItemUpsert) (storage.MealPlan, []storage.MealPlanItem, error) {
	now := time.Now().UTC()
	plan := storage.MealPlan{
		ID:              uuid.New().String(),
		UserID:          userID,
		Title:           header.Title,
		IsActive:        true,
		TargetCalories:  header.TargetCalories,
		TargetProteinG:  header.TargetProteinG,
		SolveDurationMs: header.SolveDurationMs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]storage.MealPlanItem, 0, len(itemsUpsert))
	for _, req := range itemsUpsert {
		items = append(items, storage.MealPlanItem{
			ID:             uuid.New().String(),
			UserID:         userID,
			PlanID:         plan.ID,
			DayIndex:       req.DayIndex,
			MealSlot:       req.MealSlot,
			RecipeID:       req.RecipeID,
			Title:          req.Title,
			ImageURL:       req.ImageURL,
			ReadyInMinutes: req.ReadyInMinutes,
			Servings:       req.Servings,
			Subtype:        req.Subtype,
			CaloriesKcal:   req.CaloriesKcal,
			ProteinG:       req.ProteinG,
			FatG:           req.FatG,
			CarbsG:         req.CarbsG,
			CreatedAt:      now,
		})
	}

	s.mu.Lock()
	s.active[userID] = &activePlan{plan: plan, items: items}
	s.mu.Unlock()

	out := make([]storage.MealPlanItem, len(items))
	copy(out, items)
	return plan, out, nil
}

func (s *mealPlansStorage) DeleteActive(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, userID)
	return nil
}

func (s *mealPlansStorage) GetDay(ctx context.Context, userID string, dayIndex int) ([]storage.MealPlanItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []storage.MealPlanItem{}
	ap, ok := s.active[userID]
	if !ok {
		return results, nil
	}

	for _, item := range ap.items {
		if item.DayIndex == dayIndex {
			results = append(results, item)
		}
	}
	return results, nil
}
