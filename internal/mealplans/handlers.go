package mealplans

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fdg312/mealweek/internal/userctx"
)

// Handler serves the stored weekly plan of the calling user.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGet handles GET /v1/meal/plan. A user without a plan gets 200
// with a null plan and empty items.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	resp, _, err := h.service.GetActive(r.Context(), userctx.UserIDOrDefault(r.Context()))
	if err != nil {
		h.internal(w, "get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetToday handles GET /v1/meal/today?date=YYYY-MM-DD.
func (h *Handler) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetToday(r.Context(), userctx.UserIDOrDefault(r.Context()), r.URL.Query().Get("date"))
	switch {
	case errors.Is(err, ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case err != nil:
		h.internal(w, "get today", err)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleDelete handles DELETE /v1/meal/plan.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteActive(r.Context(), userctx.UserIDOrDefault(r.Context())); err != nil {
		h.internal(w, "delete plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) internal(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR mealplans: %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal_error", "Failed to "+op)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code, body.Error.Message = code, message
	writeJSON(w, status, body)
}
