package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups of a single row that does not exist.
var ErrNotFound = errors.New("not found")

// Storage объединяет все хранилища сервиса
type Storage interface {
	NutritionTargets() NutritionTargetsStorage
	MealPlans() MealPlansStorage
	Exports() ExportsStorage

	// Close закрывает соединение (для Postgres)
	Close() error
}

// NutritionTargetsStorage — интерфейс для работы с целями по питанию
type NutritionTargetsStorage interface {
	// Get возвращает цели пользователя; (nil, nil) если целей нет
	Get(ctx context.Context, userID string) (*NutritionTarget, error)

	// Upsert создаёт или обновляет цели по питанию
	Upsert(ctx context.Context, userID string, upsert NutritionTargetUpsert) (*NutritionTarget, error)
}

// NutritionTarget represents the daily nutrition goals of a user.
type NutritionTarget struct {
	ID           uuid.UUID
	UserID       string
	CaloriesKcal int
	ProteinG     int
	FatG         int
	CarbsG       int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NutritionTargetUpsert is used for creating/updating targets.
type NutritionTargetUpsert struct {
	CaloriesKcal int
	ProteinG     int
	FatG         int
	CarbsG       int
}

// MealPlansStorage manages the active weekly plan of a user.
type MealPlansStorage interface {
	// GetActive returns the active meal plan with its items
	GetActive(ctx context.Context, userID string) (MealPlan, []MealPlanItem, bool, error)
	// ReplaceActive atomically replaces the active meal plan with a new header and items
	ReplaceActive(ctx context.Context, userID string, header MealPlanHeader, items []MealPlanItemUpsert) (MealPlan, []MealPlanItem, error)
	// DeleteActive removes the active meal plan
	DeleteActive(ctx context.Context, userID string) error
	// GetDay returns the items of one day (0=Monday) of the active plan
	GetDay(ctx context.Context, userID string, dayIndex int) ([]MealPlanItem, error)
}

type MealPlan struct {
	ID              string
	UserID          string
	Title           string
	IsActive        bool
	TargetCalories  int
	TargetProteinG  int
	SolveDurationMs int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MealPlanItem struct {
	ID             string
	UserID         string
	PlanID         string
	DayIndex       int
	MealSlot       string
	RecipeID       string
	Title          string
	ImageURL       *string
	ReadyInMinutes *int
	Servings       *int
	Subtype        string
	CaloriesKcal   int
	ProteinG       int
	FatG           int
	CarbsG         int
	CreatedAt      time.Time
}

type MealPlanItemUpsert struct {
	DayIndex       int
	MealSlot       string
	RecipeID       string
	Title          string
	ImageURL       *string
	ReadyInMinutes *int
	Servings       *int
	Subtype        string
	CaloriesKcal   int
	ProteinG       int
	FatG           int
	CarbsG         int
}

// MealPlanHeader describes a plan being stored.
type MealPlanHeader struct {
	Title           string
	TargetCalories  int
	TargetProteinG  int
	SolveDurationMs int64
}

// ExportsStorage — интерфейс для работы с выгрузками плана
type ExportsStorage interface {
	// Create сохраняет метаданные выгрузки (и данные в memory режиме)
	Create(ctx context.Context, export *ExportMeta) error

	// Get возвращает выгрузку по ID; ErrNotFound если нет
	Get(ctx context.Context, id uuid.UUID) (*ExportMeta, error)

	// List возвращает выгрузки пользователя, новые первыми
	List(ctx context.Context, userID string, limit, offset int) ([]ExportMeta, error)

	// Count возвращает количество выгрузок пользователя
	Count(ctx context.Context, userID string) (int, error)

	// Delete удаляет выгрузку; ErrNotFound если нет
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExportMeta — метаданные выгрузки плана
type ExportMeta struct {
	ID        uuid.UUID
	UserID    string
	PlanID    string
	Format    string  // "pdf" or "csv"
	ObjectKey *string // S3 object key (NULL for memory mode)
	SizeBytes int64
	CreatedAt time.Time
	Data      []byte // Only used in memory mode (not stored in DB)
}
