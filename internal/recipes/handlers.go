package recipes

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/fdg312/mealweek/internal/provider"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGetDetail handles GET /v1/recipes/{id}. Ids are the provider's
// numeric recipe ids.
func (h *Handler) HandleGetDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "recipe id must be numeric")
		return
	}

	detail, err := h.service.Detail(r.Context(), id)
	var fetchErr *provider.RecipeFetchError
	switch {
	case errors.Is(err, provider.ErrRecipeNotFound):
		writeError(w, http.StatusNotFound, "recipe_not_found", "Recipe not found")
	case errors.As(err, &fetchErr):
		log.Printf("WARN recipes: provider failed id=%s: %v", id, err)
		writeError(w, http.StatusBadGateway, "provider_error", "Recipe provider request failed")
	case err != nil:
		log.Printf("ERROR recipes: detail id=%s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get recipe")
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detail)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}
