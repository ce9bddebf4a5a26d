package recipes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/engine"
	"github.com/fdg312/mealweek/internal/provider"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Search(ctx context.Context, q provider.Query) ([]engine.RawRecipe, error) {
	return nil, nil
}

func (p *countingProvider) Information(ctx context.Context, id string) (*provider.RecipeDetail, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &provider.RecipeDetail{ID: id, Title: "Recipe " + id, Steps: []provider.InstructionStep{}, Ingredients: []provider.Ingredient{}}, nil
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, id string) (*provider.RecipeDetail, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, d *provider.RecipeDetail) error {
	return errors.New("connection refused")
}

func TestServiceDetailCachesProviderResult(t *testing.T) {
	p := &countingProvider{}
	svc := NewService(p, NewMemoryCache(time.Hour))

	first, err := svc.Detail(context.Background(), "42")
	require.NoError(t, err)
	second, err := svc.Detail(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, first.Title, second.Title)
}

func TestServiceDetailBypassesBrokenCache(t *testing.T) {
	p := &countingProvider{}
	svc := NewService(p, brokenCache{})

	for i := 0; i < 2; i++ {
		d, err := svc.Detail(context.Background(), "7")
		require.NoError(t, err)
		assert.Equal(t, "7", d.ID)
	}
	assert.Equal(t, 2, p.calls)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), &provider.RecipeDetail{ID: "1", Title: "Soup"}))

	got, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Soup", got.Title)

	now = now.Add(time.Minute)
	got, err = c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewDetailCacheFallsBackToMemory(t *testing.T) {
	assert.IsType(t, &MemoryCache{}, NewDetailCache(&config.Config{}))
	assert.IsType(t, &MemoryCache{}, NewDetailCache(&config.Config{RedisURL: "ftp://nope"}))
	assert.IsType(t, &MemoryCache{}, NewDetailCache(&config.Config{RedisURL: "redis://127.0.0.1:1/0"}))
}

func TestHandleGetDetail(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
	}{
		{name: "found", wantStatus: http.StatusOK},
		{name: "non-numeric id", id: "pasta", wantStatus: http.StatusBadRequest},
		{name: "not found", err: &provider.RecipeFetchError{Op: "information", StatusCode: 404, Err: provider.ErrRecipeNotFound}, wantStatus: http.StatusNotFound},
		{name: "provider down", err: &provider.RecipeFetchError{Op: "information", StatusCode: 503, Err: errors.New("unavailable")}, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewService(&countingProvider{err: tt.err}, nil))

			id := tt.id
			if id == "" {
				id = "716429"
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/recipes/"+id, nil)
			req.SetPathValue("id", id)
			rec := httptest.NewRecorder()
			h.HandleGetDetail(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
