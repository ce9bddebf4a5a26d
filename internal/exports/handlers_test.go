package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/mealweek/internal/blob"
	"github.com/fdg312/mealweek/internal/storage"
	"github.com/fdg312/mealweek/internal/storage/memory"
	"github.com/fdg312/mealweek/internal/userctx"
	"github.com/google/uuid"
)

// fakeBlobStore keeps objects in a map.
type fakeBlobStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.objects[key] = data
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, blob.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeBlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://s3.example/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func setupTestService(t *testing.T, blobStore blob.Store, opts Options) *Service {
	t.Helper()
	store := memory.New()

	_, _, err := store.MealPlans().ReplaceActive(context.Background(), "user1", storage.MealPlanHeader{
		Title:          "Week plan 2000 kcal / 80 g protein",
		TargetCalories: 2000,
		TargetProteinG: 80,
	}, []storage.MealPlanItemUpsert{
		{DayIndex: 0, MealSlot: "breakfast", RecipeID: "101", Title: "Overnight Oats", CaloriesKcal: 400, ProteinG: 15, FatG: 10, CarbsG: 60},
		{DayIndex: 0, MealSlot: "lunch", RecipeID: "201", Title: "Lentil Curry, extra spicy", CaloriesKcal: 650, ProteinG: 30, FatG: 20, CarbsG: 80},
		{DayIndex: 1, MealSlot: "am_snack", RecipeID: "401", Title: "Green Smoothie", Subtype: "smoothie", CaloriesKcal: 200, ProteinG: 8, FatG: 4, CarbsG: 30},
	})
	if err != nil {
		t.Fatalf("failed to seed plan: %v", err)
	}

	return NewService(store.Exports(), store.MealPlans(), blobStore, opts)
}

func requestAs(method, target, userID string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(userctx.WithUserID(req.Context(), userID))
}

func createBody(format string) []byte {
	body, _ := json.Marshal(CreateExportRequest{Format: format})
	return body
}

func TestHandleCreate_CSV_Success(t *testing.T) {
	service := setupTestService(t, nil, Options{MaxPerUser: 20})
	handler := NewHandlers(service)

	w := httptest.NewRecorder()
	handler.HandleCreate(w, requestAs("POST", "/v1/meal/plan/exports", "user1", createBody(FormatCSV)))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}

	var resp ExportDTO
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Format != FormatCSV {
		t.Errorf("expected format csv, got %s", resp.Format)
	}
	if !strings.HasSuffix(resp.DownloadURL, "/v1/meal/plan/exports/"+resp.ID.String()+"/download") {
		t.Errorf("unexpected download URL %s", resp.DownloadURL)
	}
	if resp.SizeBytes == 0 {
		t.Error("expected non-empty export")
	}
}

func TestHandleCreate_PDF_Success(t *testing.T) {
	service := setupTestService(t, nil, Options{})
	handler := NewHandlers(service)

	w := httptest.NewRecorder()
	handler.HandleCreate(w, requestAs("POST", "/v1/meal/plan/exports", "user1", createBody("PDF")))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}

	var resp ExportDTO
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	data, contentType, err := service.Data(context.Background(), "user1", resp.ID)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if contentType != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", contentType)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("expected a PDF document")
	}
}

func TestHandleCreate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		format string
		opts   Options
		status int
		code   string
	}{
		{"invalid format", "user1", "xlsx", Options{}, http.StatusBadRequest, "invalid_format"},
		{"no active plan", "user2", FormatCSV, Options{}, http.StatusNotFound, "plan_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandlers(setupTestService(t, nil, tt.opts))

			w := httptest.NewRecorder()
			handler.HandleCreate(w, requestAs("POST", "/v1/meal/plan/exports", tt.userID, createBody(tt.format)))

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}

			var errResp map[string]map[string]string
			json.NewDecoder(w.Body).Decode(&errResp)
			if errResp["error"]["code"] != tt.code {
				t.Errorf("expected error code %s, got %s", tt.code, errResp["error"]["code"])
			}
		})
	}
}

func TestHandleCreate_LimitPerUser(t *testing.T) {
	service := setupTestService(t, nil, Options{MaxPerUser: 2})
	handler := NewHandlers(service)

	for i := 0; i < 2; i++ {
		if _, err := service.Create(context.Background(), "user1", CreateExportRequest{Format: FormatCSV}); err != nil {
			t.Fatalf("failed to create export: %v", err)
		}
	}

	w := httptest.NewRecorder()
	handler.HandleCreate(w, requestAs("POST", "/v1/meal/plan/exports", "user1", createBody(FormatCSV)))

	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
}

func TestHandleList_OnlyOwnExports(t *testing.T) {
	service := setupTestService(t, nil, Options{})
	handler := NewHandlers(service)

	service.Create(context.Background(), "user1", CreateExportRequest{Format: FormatCSV})
	service.Create(context.Background(), "user1", CreateExportRequest{Format: FormatPDF})

	w := httptest.NewRecorder()
	handler.HandleList(w, requestAs("GET", "/v1/meal/plan/exports", "user1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp ExportsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Exports) != 2 {
		t.Errorf("expected 2 exports, got %d", len(resp.Exports))
	}

	w = httptest.NewRecorder()
	handler.HandleList(w, requestAs("GET", "/v1/meal/plan/exports", "user2", nil))
	resp = ExportsResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Exports) != 0 {
		t.Errorf("expected no exports for user2, got %d", len(resp.Exports))
	}
}

func TestHandleDownload_LocalMode(t *testing.T) {
	service := setupTestService(t, nil, Options{})
	handler := NewHandlers(service)

	export, err := service.Create(context.Background(), "user1", CreateExportRequest{Format: FormatCSV})
	if err != nil {
		t.Fatalf("failed to create export: %v", err)
	}

	req := requestAs("GET", fmt.Sprintf("/v1/meal/plan/exports/%s/download", export.ID), "user1", nil)
	req.SetPathValue("id", export.ID.String())
	w := httptest.NewRecorder()

	handler.HandleDownload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("expected content type text/csv, got %s", w.Header().Get("Content-Type"))
	}

	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	if rows[2][1] != "Monday" || rows[2][4] != "Lentil Curry, extra spicy" || rows[2][6] != "650" {
		t.Errorf("unexpected row %v", rows[2])
	}
	if rows[3][5] != "smoothie" {
		t.Errorf("expected smoothie subtype, got %v", rows[3])
	}
}

func TestHandleDownload_OtherUserNotFound(t *testing.T) {
	service := setupTestService(t, nil, Options{})
	handler := NewHandlers(service)

	export, err := service.Create(context.Background(), "user1", CreateExportRequest{Format: FormatCSV})
	if err != nil {
		t.Fatalf("failed to create export: %v", err)
	}

	req := requestAs("GET", "/", "user2", nil)
	req.SetPathValue("id", export.ID.String())
	w := httptest.NewRecorder()

	handler.HandleDownload(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestS3Mode_UploadRedirectDelete(t *testing.T) {
	store := newFakeBlobStore()
	service := setupTestService(t, store, Options{PresignTTL: 15 * time.Minute})
	handler := NewHandlers(service)

	export, err := service.Create(context.Background(), "user1", CreateExportRequest{Format: FormatCSV})
	if err != nil {
		t.Fatalf("failed to create export: %v", err)
	}

	wantKey := fmt.Sprintf("exports/user1/%s.csv", export.ID)
	if export.ObjectKey == nil || *export.ObjectKey != wantKey {
		t.Fatalf("expected object key %s, got %v", wantKey, export.ObjectKey)
	}
	if _, ok := store.objects[wantKey]; !ok {
		t.Fatal("expected object uploaded")
	}
	if export.Data != nil {
		t.Error("bytes must not be kept with metadata in S3 mode")
	}

	req := requestAs("GET", "/", "user1", nil)
	req.SetPathValue("id", export.ID.String())
	w := httptest.NewRecorder()
	handler.HandleDownload(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://s3.example/"+wantKey+"?ttl=900" {
		t.Errorf("unexpected redirect %s", loc)
	}

	req = requestAs("GET", "/?redirect=false", "user1", nil)
	req.SetPathValue("id", export.ID.String())
	w = httptest.NewRecorder()
	handler.HandleDownload(w, req)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Errorf("expected proxied bytes, got %d", w.Code)
	}

	req = requestAs("DELETE", "/", "user1", nil)
	req.SetPathValue("id", export.ID.String())
	w = httptest.NewRecorder()
	handler.HandleDelete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if len(store.deleted) != 1 || store.deleted[0] != wantKey {
		t.Errorf("expected object deleted, got %v", store.deleted)
	}
}

func TestDownloadURL_PreferPublic(t *testing.T) {
	service := setupTestService(t, newFakeBlobStore(), Options{PublicBaseURL: "https://cdn.example/", PreferPublicURL: true})

	export, err := service.Create(context.Background(), "user1", CreateExportRequest{Format: FormatPDF})
	if err != nil {
		t.Fatalf("failed to create export: %v", err)
	}

	url, err := service.DownloadURL(context.Background(), export, "http://api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.example/"+*export.ObjectKey {
		t.Errorf("unexpected public URL %s", url)
	}
}

func TestHandleDelete_NotFound(t *testing.T) {
	handler := NewHandlers(setupTestService(t, nil, Options{}))

	req := requestAs("DELETE", "/", "user1", nil)
	req.SetPathValue("id", uuid.New().String())
	w := httptest.NewRecorder()

	handler.HandleDelete(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
