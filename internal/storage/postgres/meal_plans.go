package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/mealweek/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const mealPlanItemColumns = `id, user_id, plan_id, day_index, meal_slot, recipe_id, title, image_url,
	ready_in_minutes, servings, subtype, calories_kcal, protein_g, fat_g, carbs_g, created_at`

// slot order within a day
const mealSlotOrder = `
	CASE meal_slot
		WHEN 'breakfast' THEN 1
		WHEN 'am_snack' THEN 2
		WHEN 'lunch' THEN 3
		WHEN 'pm_snack' THEN 4
		WHEN 'dinner' THEN 5
		WHEN 'dessert' THEN 6
	END`

type mealPlansStorage struct {
	pool *pgxpool.Pool
}

func newMealPlansStorage(pool *pgxpool.Pool) *mealPlansStorage {
	return &mealPlansStorage{pool: pool}
}

func scanMealPlanItem(row pgx.Row) (storage.MealPlanItem, error) {
	var item storage.MealPlanItem
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.PlanID,
		&item.DayIndex,
		&item.MealSlot,
		&item.RecipeID,
		&item.Title,
		&item.ImageURL,
		&item.ReadyInMinutes,
		&item.Servings,
		&item.Subtype,
		&item.CaloriesKcal,
		&item.ProteinG,
		&item.FatG,
		&item.CarbsG,
		&item.CreatedAt,
	)
	return item, err
}

func (s *mealPlansStorage) GetActive(ctx context.Context, userID string) (storage.MealPlan, []storage.MealPlanItem, bool, error) {
	planQuery := `
		SELECT id, user_id, title, is_active, target_calories, target_protein_g, solve_duration_ms, created_at, updated_at
		FROM meal_plans
		WHERE user_id = $1 AND is_active = true
	`

	var plan storage.MealPlan
	err := s.pool.QueryRow(ctx, planQuery, userID).Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Title,
		&plan.IsActive,
		&plan.TargetCalories,
		&plan.TargetProteinG,
		&plan.SolveDurationMs,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.MealPlan{}, nil, false, nil
	}
	if err != nil {
		return storage.MealPlan{}, nil, false, fmt.Errorf("failed to get active meal plan: %w", err)
	}

	items, err := s.queryItems(ctx, `
		SELECT `+mealPlanItemColumns+`
		FROM meal_plan_items
		WHERE plan_id = $1
		ORDER BY day_index, `+mealSlotOrder, plan.ID)
	if err != nil {
		return storage.MealPlan{}, nil, false, err
	}

	return plan, items, true, nil
}

func (s *mealPlansStorage) ReplaceActive(ctx context.Context, userID string, header storage.MealPlanHeader, itemsUpsert []storage.MealPlanItemUpsert) (storage.MealPlan, []storage.MealPlanItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// items go with ON DELETE CASCADE
	if _, err := tx.Exec(ctx, `DELETE FROM meal_plans WHERE user_id = $1 AND is_active = true`, userID); err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to delete existing meal plan: %w", err)
	}

	planQuery := `
		INSERT INTO meal_plans (user_id, title, is_active, target_calories, target_protein_g, solve_duration_ms)
		VALUES ($1, $2, true, $3, $4, $5)
		RETURNING id, user_id, title, is_active, target_calories, target_protein_g, solve_duration_ms, created_at, updated_at
	`

	var plan storage.MealPlan
	err = tx.QueryRow(ctx, planQuery,
		userID,
		header.Title,
		header.TargetCalories,
		header.TargetProteinG,
		header.SolveDurationMs,
	).Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Title,
		&plan.IsActive,
		&plan.TargetCalories,
		&plan.TargetProteinG,
		&plan.SolveDurationMs,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to create meal plan: %w", err)
	}

	itemQuery := `
		INSERT INTO meal_plan_items (user_id, plan_id, day_index, meal_slot, recipe_id, title, image_url,
		                             ready_in_minutes, servings, subtype, calories_kcal, protein_g, fat_g, carbs_g)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + mealPlanItemColumns

	items := make([]storage.MealPlanItem, 0, len(itemsUpsert))
	for _, req := range itemsUpsert {
		item, err := scanMealPlanItem(tx.QueryRow(ctx, itemQuery,
			userID,
			plan.ID,
			req.DayIndex,
			req.MealSlot,
			req.RecipeID,
			req.Title,
			req.ImageURL,
			req.ReadyInMinutes,
			req.Servings,
			req.Subtype,
			req.CaloriesKcal,
			req.ProteinG,
			req.FatG,
			req.CarbsG,
		))
		if err != nil {
			return storage.MealPlan{}, nil, fmt.Errorf("failed to insert meal plan item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return plan, items, nil
}

func (s *mealPlansStorage) DeleteActive(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM meal_plans WHERE user_id = $1 AND is_active = true`, userID); err != nil {
		return fmt.Errorf("failed to delete active meal plan: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) GetDay(ctx context.Context, userID string, dayIndex int) ([]storage.MealPlanItem, error) {
	return s.queryItems(ctx, `
		SELECT `+mealPlanItemColumns+`
		FROM meal_plan_items
		WHERE plan_id = (SELECT id FROM meal_plans WHERE user_id = $1 AND is_active = true)
		  AND day_index = $2
		ORDER BY `+mealSlotOrder, userID, dayIndex)
}

func (s *mealPlansStorage) queryItems(ctx context.Context, query string, args ...any) ([]storage.MealPlanItem, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan items: %w", err)
	}
	defer rows.Close()

	items := []storage.MealPlanItem{}
	for rows.Next() {
		item, err := scanMealPlanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal plan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meal plan items: %w", err)
	}

	return items, nil
}
