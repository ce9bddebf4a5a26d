package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/mealweek/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const targetColumns = `id, user_id, calories_kcal, protein_g, fat_g, carbs_g, created_at, updated_at`

type nutritionTargetsStorage struct {
	pool *pgxpool.Pool
}

func newNutritionTargetsStorage(pool *pgxpool.Pool) *nutritionTargetsStorage {
	return &nutritionTargetsStorage{pool: pool}
}

func scanTarget(row pgx.Row) (*storage.NutritionTarget, error) {
	var t storage.NutritionTarget
	if err := row.Scan(&t.ID, &t.UserID, &t.CaloriesKcal, &t.ProteinG, &t.FatG, &t.CarbsG, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Get returns nil without error when the user has no stored targets.
func (s *nutritionTargetsStorage) Get(ctx context.Context, userID string) (*storage.NutritionTarget, error) {
	t, err := scanTarget(s.pool.QueryRow(ctx,
		`SELECT `+targetColumns+` FROM nutrition_targets WHERE user_id = $1`, userID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get nutrition targets user=%s: %w", userID, err)
	}
	return t, nil
}

func (s *nutritionTargetsStorage) Upsert(ctx context.Context, userID string, in storage.NutritionTargetUpsert) (*storage.NutritionTarget, error) {
	t, err := scanTarget(s.pool.QueryRow(ctx, `
		INSERT INTO nutrition_targets (user_id, calories_kcal, protein_g, fat_g, carbs_g)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			calories_kcal = EXCLUDED.calories_kcal,
			protein_g     = EXCLUDED.protein_g,
			fat_g         = EXCLUDED.fat_g,
			carbs_g       = EXCLUDED.carbs_g,
			updated_at    = now()
		RETURNING `+targetColumns,
		userID, in.CaloriesKcal, in.ProteinG, in.FatG, in.CarbsG))
	if err != nil {
		return nil, fmt.Errorf("upsert nutrition targets user=%s: %w", userID, err)
	}
	return t, nil
}
