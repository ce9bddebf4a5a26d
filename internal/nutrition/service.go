package nutrition

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/mealweek/internal/storage"
)

// ValidationError is returned for request bodies outside the accepted ranges.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Service handles nutrition targets business logic.
type Service struct {
	targetsStorage storage.NutritionTargetsStorage
}

// NewService creates a new nutrition service.
func NewService(targetsStorage storage.NutritionTargetsStorage) *Service {
	return &Service{targetsStorage: targetsStorage}
}

// GetOrDefault returns the user's targets or defaults if not set.
func (s *Service) GetOrDefault(ctx context.Context, userID string) (TargetsDTO, bool, error) {
	target, err := s.targetsStorage.Get(ctx, userID)
	if err != nil {
		return TargetsDTO{}, false, fmt.Errorf("failed to get nutrition targets: %w", err)
	}

	if target == nil {
		return GetDefaultTargets(), true, nil
	}

	return toDTO(target), false, nil
}

// Upsert creates or updates the user's targets.
func (s *Service) Upsert(ctx context.Context, userID string, req UpsertTargetsRequest) (TargetsDTO, error) {
	if err := req.Validate(); err != nil {
		return TargetsDTO{}, invalid(err)
	}

	target, err := s.targetsStorage.Upsert(ctx, userID, storage.NutritionTargetUpsert{
		CaloriesKcal: req.CaloriesKcal,
		ProteinG:     req.ProteinG,
		FatG:         req.FatG,
		CarbsG:       req.CarbsG,
	})
	if err != nil {
		return TargetsDTO{}, fmt.Errorf("failed to upsert nutrition targets: %w", err)
	}

	return toDTO(target), nil
}

// Calculate computes daily targets from body measurements and stores them
// when req.Save is set.
func (s *Service) Calculate(ctx context.Context, userID string, req CalculateRequest) (CalculateResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return CalculateResponse{}, invalid(err)
	}

	intake := CalculateIntake(req)
	resp := CalculateResponse{
		BMR:  intake.BMR,
		TDEE: intake.TDEE,
		Targets: TargetsDTO{
			CaloriesKcal: intake.CaloriesKcal,
			ProteinG:     intake.ProteinG,
			FatG:         intake.FatG,
			CarbsG:       intake.CarbsG,
		},
	}
	if !req.Save {
		return resp, nil
	}

	saved, err := s.Upsert(ctx, userID, UpsertTargetsRequest{
		CaloriesKcal: intake.CaloriesKcal,
		ProteinG:     intake.ProteinG,
		FatG:         intake.FatG,
		CarbsG:       intake.CarbsG,
	})
	if err != nil {
		return CalculateResponse{}, err
	}
	resp.Targets = saved
	resp.Saved = true
	return resp, nil
}

func toDTO(target *storage.NutritionTarget) TargetsDTO {
	return TargetsDTO{
		CaloriesKcal: target.CaloriesKcal,
		ProteinG:     target.ProteinG,
		FatG:         target.FatG,
		CarbsG:       target.CarbsG,
		CreatedAt:    target.CreatedAt,
		UpdatedAt:    target.UpdatedAt,
	}
}
