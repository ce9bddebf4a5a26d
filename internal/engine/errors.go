package engine

import (
	"fmt"

	"github.com/fdg312/mealweek/internal/solver"
)

// ValidationError reports malformed input: a bad target, rule set or recipe.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientPoolError reports an empty pool behind a mandatory slot.
type InsufficientPoolError struct {
	Slot SlotType
	Pool string
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("pool %q required by slot %s is empty", e.Pool, e.Slot)
}

// InfeasiblePlanError reports a solve that did not end optimal.
type InfeasiblePlanError struct {
	Status solver.Status
	Cause  error
}

func (e *InfeasiblePlanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no feasible plan (solver status %s): %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("no feasible plan (solver status %s)", e.Status)
}

func (e *InfeasiblePlanError) Unwrap() error { return e.Cause }
