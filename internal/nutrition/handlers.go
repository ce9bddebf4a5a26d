package nutrition

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fdg312/mealweek/internal/userctx"
)

// Handler serves the caller's daily calorie and macro targets.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGetTargets handles GET /v1/nutrition/targets. Users without stored
// targets get the defaults with is_default=true.
func (h *Handler) HandleGetTargets(w http.ResponseWriter, r *http.Request) {
	targets, isDefault, err := h.service.GetOrDefault(r.Context(), userctx.UserIDOrDefault(r.Context()))
	if err != nil {
		respondErr(w, "get targets", err)
		return
	}
	writeJSON(w, http.StatusOK, GetTargetsResponse{Targets: targets, IsDefault: isDefault})
}

// HandleUpsertTargets handles PUT /v1/nutrition/targets.
func (h *Handler) HandleUpsertTargets(w http.ResponseWriter, r *http.Request) {
	var req UpsertTargetsRequest
	if !decode(w, r, &req) {
		return
	}
	targets, err := h.service.Upsert(r.Context(), userctx.UserIDOrDefault(r.Context()), req)
	if err != nil {
		respondErr(w, "save targets", err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// HandleCalculate handles POST /v1/nutrition/targets/calculate.
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.Calculate(r.Context(), userctx.UserIDOrDefault(r.Context()), req)
	if err != nil {
		respondErr(w, "calculate targets", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return false
	}
	return true
}

func respondErr(w http.ResponseWriter, op string, err error) {
	if IsValidationError(err) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	log.Printf("ERROR nutrition: %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal_error", "Failed to "+op)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}
