package exports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fdg312/mealweek/internal/userctx"
)

// Handlers handles HTTP requests for plan exports
type Handlers struct {
	service *Service
}

// NewHandlers creates new handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleCreate handles POST /v1/meal/plan/exports
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := userctx.UserIDOrDefault(r.Context())

	var req CreateExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	export, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidFormat):
			writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
		case errors.Is(err, ErrNoActivePlan):
			writeError(w, http.StatusNotFound, "plan_not_found", "Generate a meal plan before exporting it")
		case errors.Is(err, ErrTooManyExports):
			writeError(w, http.StatusConflict, "export_limit_reached", fmt.Sprintf("At most %d exports are kept, delete one first", h.service.opts.MaxPerUser))
		default:
			log.Printf("ERROR exports: create user=%s err=%v", userID, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create export")
		}
		return
	}

	dto, err := h.toDTO(r, export)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto)
}

// HandleList handles GET /v1/meal/plan/exports
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := userctx.UserIDOrDefault(r.Context())

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	list, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list exports")
		return
	}

	dtos := make([]ExportDTO, 0, len(list))
	for i := range list {
		dto, err := h.toDTO(r, &list[i])
		if err != nil {
			log.Printf("WARN exports: download url id=%s err=%v", list[i].ID, err)
		}
		dtos = append(dtos, dto)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ExportsResponse{Exports: dtos})
}

// HandleDownload handles GET /v1/meal/plan/exports/{id}/download
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	userID := userctx.UserIDOrDefault(r.Context())

	exportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid export ID")
		return
	}

	export, err := h.service.Get(r.Context(), userID, exportID)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}

	// S3 mode: redirect unless the caller asks for the bytes
	if !h.service.LocalMode() && r.URL.Query().Get("redirect") != "false" {
		url, err := h.service.DownloadURL(r.Context(), export, getBaseURL(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	data, contentType, err := h.service.Data(r.Context(), userID, exportID)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}

	filename := fmt.Sprintf("meal_plan_%s.%s", export.CreatedAt.UTC().Format("2006-01-02"), export.Format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleDelete handles DELETE /v1/meal/plan/exports/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := userctx.UserIDOrDefault(r.Context())

	exportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid export ID")
		return
	}

	if err := h.service.Delete(r.Context(), userID, exportID); err != nil {
		writeNotFoundOr500(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) toDTO(r *http.Request, export *Export) (ExportDTO, error) {
	url, err := h.service.DownloadURL(r.Context(), export, getBaseURL(r))
	return ExportDTO{
		ID:          export.ID,
		PlanID:      export.PlanID,
		Format:      export.Format,
		DownloadURL: url,
		SizeBytes:   export.SizeBytes,
		CreatedAt:   export.CreatedAt,
	}, err
}

func writeNotFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrExportNotFound) {
		writeError(w, http.StatusNotFound, "export_not_found", "Export not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
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

func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
