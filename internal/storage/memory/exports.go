package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/mealweek/internal/storage"
	"github.com/google/uuid"
)

// ExportsMemoryStorage — in-memory storage для выгрузок
type ExportsMemoryStorage struct {
	mu      sync.RWMutex
	exports map[uuid.UUID]*storage.ExportMeta
}

func NewExportsMemoryStorage() *ExportsMemoryStorage {
	return &ExportsMemoryStorage{
		exports: make(map[uuid.UUID]*storage.ExportMeta),
	}
}

func (s *ExportsMemoryStorage) Create(ctx context.Context, export *storage.ExportMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}
	export.CreatedAt = time.Now().UTC()

	stored := *export
	s.exports[export.ID] = &stored
	return nil
}

func (s *ExportsMemoryStorage) Get(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	export, ok := s.exports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copied := *export
	return &copied, nil
}

func (s *ExportsMemoryStorage) List(ctx context.Context, userID string, limit, offset int) ([]storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := []storage.ExportMeta{}
	for _, e := range s.exports {
		if e.UserID == userID {
			meta := *e
			meta.Data = nil
			filtered = append(filtered, meta)
		}
	}

	// created_at DESC
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	if offset >= len(filtered) {
		return []storage.ExportMeta{}, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], nil
}

func (s *ExportsMemoryStorage) Count(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.exports {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *ExportsMemoryStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exports[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.exports, id)
	return nil
}
