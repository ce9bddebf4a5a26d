package planning

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fdg312/mealweek/internal/engine"
	"github.com/fdg312/mealweek/internal/mealplans"
	"github.com/fdg312/mealweek/internal/provider"
	"github.com/fdg312/mealweek/internal/userctx"
)

// GeneratePlanResponse is the body of POST /v1/meal/plan/generate.
type GeneratePlanResponse struct {
	mealplans.GetMealPlanResponse
	PoolSizes map[string]int `json:"pool_sizes"`
	ElapsedMs int64          `json:"elapsed_ms"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGenerate handles POST /v1/meal/plan/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := userctx.UserIDOrDefault(r.Context())

	result, err := h.service.Generate(r.Context(), userID)
	if err != nil {
		status, code, message := mapGenerateError(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR planning: user=%s err=%v", userID, err)
		}
		writeError(w, status, code, message)
		return
	}

	resp := GeneratePlanResponse{
		GetMealPlanResponse: mealplans.NewMealPlanResponse(result.Plan, result.Items),
		PoolSizes:           result.PoolSizes,
		ElapsedMs:           result.Elapsed.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func mapGenerateError(err error) (int, string, string) {
	var (
		validationErr   *engine.ValidationError
		insufficientErr *engine.InsufficientPoolError
		infeasibleErr   *engine.InfeasiblePlanError
		fetchErr        *provider.RecipeFetchError
	)

	switch {
	case errors.Is(err, ErrTargetsNotFound):
		return http.StatusNotFound, "targets_not_found", "Set nutrition targets before generating a plan"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "invalid_targets", validationErr.Error()
	case errors.As(err, &insufficientErr):
		return http.StatusUnprocessableEntity, "insufficient_recipes", insufficientErr.Error()
	case errors.As(err, &infeasibleErr):
		return http.StatusUnprocessableEntity, "plan_infeasible", "No weekly plan satisfies the targets with the available recipes"
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "provider_error", "Recipe provider request failed"
	default:
		return http.StatusInternalServerError, "internal_error", "Failed to generate meal plan"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
