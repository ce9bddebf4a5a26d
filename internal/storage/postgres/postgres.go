package postgres

import (
	"context"

	"github.com/fdg312/mealweek/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage — Postgres реализация storage.Storage
type PostgresStorage struct {
	pool             *pgxpool.Pool
	nutritionTargets *nutritionTargetsStorage
	mealPlans        *mealPlansStorage
	exports          *PostgresExportsStorage
}

// New открывает пул соединений и проверяет доступность базы
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:             pool,
		nutritionTargets: newNutritionTargetsStorage(pool),
		mealPlans:        newMealPlansStorage(pool),
		exports:          NewPostgresExportsStorage(pool),
	}, nil
}

func (p *PostgresStorage) NutritionTargets() storage.NutritionTargetsStorage {
	return p.nutritionTargets
}

func (p *PostgresStorage) MealPlans() storage.MealPlansStorage {
	return p.mealPlans
}

func (p *PostgresStorage) Exports() storage.ExportsStorage {
	return p.exports
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
