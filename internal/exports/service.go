package exports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/mealweek/internal/blob"
	"github.com/fdg312/mealweek/internal/storage"
)

var (
	ErrInvalidFormat  = errors.New("invalid format")
	ErrNoActivePlan   = errors.New("no active meal plan")
	ErrExportNotFound = errors.New("export not found")
	ErrTooManyExports = errors.New("export limit reached")
)

// PlanReader loads the active plan to render.
type PlanReader interface {
	GetActive(ctx context.Context, userID string) (storage.MealPlan, []storage.MealPlanItem, bool, error)
}

// Options configures where rendered files go and how they are linked.
type Options struct {
	MaxPerUser      int
	PresignTTL      time.Duration
	PublicBaseURL   string
	PreferPublicURL bool
}

// Service handles plan exports business logic
type Service struct {
	exports   storage.ExportsStorage
	plans     PlanReader
	generator *Generator
	blobStore blob.Store
	opts      Options
}

// NewService creates a new exports service. A nil blobStore keeps the
// rendered bytes with the metadata (local mode).
func NewService(exports storage.ExportsStorage, plans PlanReader, blobStore blob.Store, opts Options) *Service {
	return &Service{
		exports:   exports,
		plans:     plans,
		generator: NewGenerator(),
		blobStore: blobStore,
		opts:      opts,
	}
}

// LocalMode reports whether exports are kept in the metadata store.
func (s *Service) LocalMode() bool {
	return s.blobStore == nil
}

// Create renders the user's active plan and stores it.
func (s *Service) Create(ctx context.Context, userID string, req CreateExportRequest) (*Export, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format != FormatPDF && format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	if s.opts.MaxPerUser > 0 {
		n, err := s.exports.Count(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count exports: %w", err)
		}
		if n >= s.opts.MaxPerUser {
			return nil, ErrTooManyExports
		}
	}

	plan, items, found, err := s.plans.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal plan: %w", err)
	}
	if !found {
		return nil, ErrNoActivePlan
	}

	data, err := s.generator.Render(format, plan, items)
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	meta := &storage.ExportMeta{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    plan.ID,
		Format:    format,
		SizeBytes: int64(len(data)),
	}

	if s.LocalMode() {
		meta.Data = data
	} else {
		objectKey := fmt.Sprintf("exports/%s/%s.%s", userID, meta.ID, format)
		if err := s.blobStore.Put(ctx, objectKey, data, contentTypeFor(format)); err != nil {
			return nil, fmt.Errorf("failed to upload export: %w", err)
		}
		meta.ObjectKey = &objectKey
	}

	if err := s.exports.Create(ctx, meta); err != nil {
		return nil, fmt.Errorf("failed to save export metadata: %w", err)
	}

	log.Printf("INFO exports: user=%s id=%s format=%s size=%d", userID, meta.ID, format, meta.SizeBytes)
	return toExport(meta), nil
}

// Get returns one export of the user.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Export, error) {
	meta, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toExport(meta), nil
}

// List returns the user's exports, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Export, error) {
	metaList, err := s.exports.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	out := make([]Export, len(metaList))
	for i := range metaList {
		out[i] = *toExport(&metaList[i])
	}
	return out, nil
}

// Delete removes the export and its stored object.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	meta, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if !s.LocalMode() && meta.ObjectKey != nil {
		if err := s.blobStore.Delete(ctx, *meta.ObjectKey); err != nil {
			// metadata goes anyway
			log.Printf("WARN exports: failed to delete object key=%s err=%v", *meta.ObjectKey, err)
		}
	}

	if err := s.exports.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrExportNotFound
		}
		return fmt.Errorf("failed to delete export metadata: %w", err)
	}
	return nil
}

// DownloadURL returns where the export can be fetched: the API download
// endpoint in local mode, otherwise a public or presigned object URL.
func (s *Service) DownloadURL(ctx context.Context, export *Export, baseURL string) (string, error) {
	if s.LocalMode() {
		return fmt.Sprintf("%s/v1/meal/plan/exports/%s/download", strings.TrimSuffix(baseURL, "/"), export.ID), nil
	}
	if export.ObjectKey == nil {
		return "", fmt.Errorf("object key is missing")
	}
	if s.opts.PreferPublicURL && s.opts.PublicBaseURL != "" {
		return blob.PublicURL(s.opts.PublicBaseURL, *export.ObjectKey), nil
	}

	url, err := s.blobStore.SignedURL(ctx, *export.ObjectKey, s.opts.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

// Data returns the rendered bytes and their content type.
func (s *Service) Data(ctx context.Context, userID string, id uuid.UUID) ([]byte, string, error) {
	meta, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}

	if s.LocalMode() {
		return meta.Data, contentTypeFor(meta.Format), nil
	}
	if meta.ObjectKey == nil {
		return nil, "", fmt.Errorf("object key is missing")
	}

	data, err := s.blobStore.Get(ctx, *meta.ObjectKey)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return nil, "", ErrExportNotFound
		}
		return nil, "", err
	}
	return data, contentTypeFor(meta.Format), nil
}

// owned loads export metadata; other users' exports read as missing.
func (s *Service) owned(ctx context.Context, userID string, id uuid.UUID) (*storage.ExportMeta, error) {
	meta, err := s.exports.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, fmt.Errorf("failed to get export: %w", err)
	}
	if meta.UserID != userID {
		return nil, ErrExportNotFound
	}
	return meta, nil
}

func toExport(meta *storage.ExportMeta) *Export {
	return &Export{
		ID:        meta.ID,
		UserID:    meta.UserID,
		PlanID:    meta.PlanID,
		Format:    meta.Format,
		ObjectKey: meta.ObjectKey,
		SizeBytes: meta.SizeBytes,
		CreatedAt: meta.CreatedAt,
		Data:      meta.Data,
	}
}
