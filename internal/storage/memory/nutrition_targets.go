package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/mealweek/internal/storage"
	"github.com/google/uuid"
)

// nutritionTargetsStorage keeps one row per user; callers get copies.
type nutritionTargetsStorage struct {
	mu     sync.RWMutex
	byUser map[string]storage.NutritionTarget
}

func newNutritionTargetsStorage() *nutritionTargetsStorage {
	return &nutritionTargetsStorage{byUser: make(map[string]storage.NutritionTarget)}
}

func (s *nutritionTargetsStorage) Get(_ context.Context, userID string) (*storage.NutritionTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byUser[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *nutritionTargetsStorage) Upsert(_ context.Context, userID string, in storage.NutritionTargetUpsert) (*storage.NutritionTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t, ok := s.byUser[userID]
	if !ok {
		t = storage.NutritionTarget{ID: uuid.New(), UserID: userID, CreatedAt: now}
	}
	t.CaloriesKcal, t.ProteinG, t.FatG, t.CarbsG = in.CaloriesKcal, in.ProteinG, in.FatG, in.CarbsG
	t.UpdatedAt = now
	s.byUser[userID] = t

	return &t, nil
}
