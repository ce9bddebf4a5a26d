package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/mealweek/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresExportsStorage — Postgres storage для выгрузок плана
type PostgresExportsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresExportsStorage(pool *pgxpool.Pool) *PostgresExportsStorage {
	return &PostgresExportsStorage{pool: pool}
}

// Create сохраняет метаданные; сами байты лежат в S3
func (s *PostgresExportsStorage) Create(ctx context.Context, export *storage.ExportMeta) error {
	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}

	query := `
		INSERT INTO plan_exports (id, user_id, plan_id, format, object_key, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		export.ID,
		export.UserID,
		export.PlanID,
		export.Format,
		export.ObjectKey,
		export.SizeBytes,
	).Scan(&export.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}

	return nil
}

func (s *PostgresExportsStorage) Get(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	query := `
		SELECT id, user_id, plan_id, format, object_key, size_bytes, created_at
		FROM plan_exports
		WHERE id = $1
	`

	var e storage.ExportMeta
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.UserID,
		&e.PlanID,
		&e.Format,
		&e.ObjectKey,
		&e.SizeBytes,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", err)
	}

	return &e, nil
}

func (s *PostgresExportsStorage) List(ctx context.Context, userID string, limit, offset int) ([]storage.ExportMeta, error) {
	query := `
		SELECT id, user_id, plan_id, format, object_key, size_bytes, created_at
		FROM plan_exports
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	exports := []storage.ExportMeta{}
	for rows.Next() {
		var e storage.ExportMeta
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.PlanID,
			&e.Format,
			&e.ObjectKey,
			&e.SizeBytes,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, e)
	}

	return exports, rows.Err()
}

func (s *PostgresExportsStorage) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM plan_exports WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count exports: %w", err)
	}
	return n, nil
}

func (s *PostgresExportsStorage) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM plan_exports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
