package memory

import (
	"github.com/fdg312/mealweek/internal/storage"
)

// MemoryStorage — in-memory реализация storage.Storage
type MemoryStorage struct {
	nutritionTargets *nutritionTargetsStorage
	mealPlans        *mealPlansStorage
	exports          *ExportsMemoryStorage
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		nutritionTargets: newNutritionTargetsStorage(),
		mealPlans:        newMealPlansStorage(),
		exports:          NewExportsMemoryStorage(),
	}
}

func (m *MemoryStorage) NutritionTargets() storage.NutritionTargetsStorage {
	return m.nutritionTargets
}

func (m *MemoryStorage) MealPlans() storage.MealPlansStorage {
	return m.mealPlans
}

func (m *MemoryStorage) Exports() storage.ExportsStorage {
	return m.exports
}

func (m *MemoryStorage) Close() error {
	return nil
}
