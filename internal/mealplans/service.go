package mealplans

import (
	"context"
	"errors"
	"time"

	"github.com/fdg312/mealweek/internal/storage"
)

var ErrInvalidDate = errors.New("invalid date format, expected YYYY-MM-DD")

// Service handles meal plans business logic.
type Service struct {
	storage storage.MealPlansStorage
	now     func() time.Time
}

// NewService creates a new meal plans service.
func NewService(storage storage.MealPlansStorage) *Service {
	return &Service{storage: storage, now: time.Now}
}

// GetActive returns the active plan with items and per-day totals.
func (s *Service) GetActive(ctx context.Context, userID string) (GetMealPlanResponse, bool, error) {
	plan, items, found, err := s.storage.GetActive(ctx, userID)
	if err != nil {
		return GetMealPlanResponse{}, false, err
	}
	if !found {
		return GetMealPlanResponse{Items: []MealPlanItemDTO{}, Days: []DayTotalsDTO{}}, false, nil
	}
	return NewMealPlanResponse(plan, items), true, nil
}

// DeleteActive deletes the active meal plan of a user.
func (s *Service) DeleteActive(ctx context.Context, userID string) error {
	return s.storage.DeleteActive(ctx, userID)
}

// GetToday returns the items planned for the weekday of dateStr (today when empty).
func (s *Service) GetToday(ctx context.Context, userID string, dateStr string) (GetTodayResponse, error) {
	date := s.now().UTC()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return GetTodayResponse{}, ErrInvalidDate
		}
		date = parsed
	}

	dayIndex := DayIndex(date)
	items, err := s.storage.GetDay(ctx, userID, dayIndex)
	if err != nil {
		return GetTodayResponse{}, err
	}

	resp := GetTodayResponse{
		Date:     date.Format("2006-01-02"),
		DayIndex: dayIndex,
		Items:    toItemDTOs(items),
		Totals:   DayTotalsDTO{DayIndex: dayIndex},
	}
	for _, item := range items {
		addItem(&resp.Totals, item)
	}
	return resp, nil
}

// DayIndex maps a date onto the plan week: 0=Monday, 6=Sunday.
func DayIndex(date time.Time) int {
	// time.Weekday: Sunday=0
	return (int(date.Weekday()) + 6) % 7
}
