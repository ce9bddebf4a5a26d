package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/engine"
)

func newTestProvider(t *testing.T, h http.HandlerFunc) *SpoonacularProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewSpoonacularProvider(&config.Config{
		SpoonacularAPIKey:      "test-key",
		SpoonacularBaseURL:     srv.URL + "/",
		ProviderTimeoutSeconds: 5,
	})
}

func TestSpoonacularSearch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/complexSearch", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("apiKey"))
		assert.Equal(t, "smoothie", q.Get("query"))
		assert.Equal(t, "drink", q.Get("type"))
		assert.Equal(t, "vegan", q.Get("diet"))
		assert.Equal(t, "30", q.Get("number"))
		assert.Equal(t, "0", q.Get("maxAlcohol"))
		assert.Equal(t, "true", q.Get("addRecipeNutrition"))
		assert.Equal(t, "true", q.Get("instructionsRequired"))
		assert.Equal(t, "random", q.Get("sort"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"id":715497,"title":"Berry Banana Smoothie","image":"https://img/715497.jpg","readyInMinutes":5,"servings":1,
			 "nutrition":{"nutrients":[{"name":"Calories","amount":189.5,"unit":"kcal"},{"name":"Protein","amount":4.1,"unit":"g"}]}},
			{"id":715498,"title":"Plain Smoothie"}
		],"offset":0,"number":2,"totalResults":2}`))
	})

	raws, err := p.Search(context.Background(), Query{Text: "smoothie", Type: TypeDrink, Count: 30})
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, "715497", raws[0].ID)
	assert.Equal(t, "Berry Banana Smoothie", raws[0].Title)
	require.NotNil(t, raws[0].ReadyInMinutes)
	assert.Equal(t, 5, *raws[0].ReadyInMinutes)
	assert.Len(t, raws[0].Nutrients, 2)

	assert.Nil(t, raws[1].Image)
	assert.Empty(t, raws[1].Nutrients)

	rec, err := engine.Normalize(raws[0])
	require.NoError(t, err)
	assert.Equal(t, 190, rec.Calories)
	assert.Equal(t, 4, rec.Protein)
}

func TestSpoonacularSearch_Failures(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
		})

		_, err := p.Search(context.Background(), Query{Type: TypeBreakfast, Count: 50})

		var fetchErr *RecipeFetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "search", fetchErr.Op)
		assert.Equal(t, http.StatusPaymentRequired, fetchErr.StatusCode)
		assert.Contains(t, err.Error(), "type=breakfast")
	})

	t.Run("malformed body", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":`))
		})

		_, err := p.Search(context.Background(), Query{Type: TypeDessert, Count: 20})

		var fetchErr *RecipeFetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusOK, fetchErr.StatusCode)
	})

	t.Run("cancelled context", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[]}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.Search(ctx, Query{Type: TypeSnack, Count: 50})

		var fetchErr *RecipeFetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSpoonacularInformation(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/recipes/716429/information":
			w.Write([]byte(`{"id":716429,"title":"Pasta","servings":2,"sourceUrl":"https://example.com/pasta",
				"summary":"<b>Tasty</b>","instructions":"Boil.",
				"extendedIngredients":[{"name":"pasta","original":"200 g pasta","amount":200,"unit":"g"}],
				"analyzedInstructions":[{"steps":[{"number":1,"step":"Boil water."},{"number":2,"step":"Cook pasta."}]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	detail, err := p.Information(context.Background(), "716429")
	require.NoError(t, err)
	assert.Equal(t, "716429", detail.ID)
	assert.Equal(t, "https://example.com/pasta", detail.SourceURL)
	require.Len(t, detail.Ingredients, 1)
	assert.Equal(t, "200 g pasta", detail.Ingredients[0].Original)
	require.Len(t, detail.Steps, 2)
	assert.Equal(t, "Cook pasta.", detail.Steps[1].Step)

	_, err = p.Information(context.Background(), "1")
	assert.True(t, errors.Is(err, ErrRecipeNotFound))

	_, err = p.Information(context.Background(), "../etc")
	assert.True(t, errors.Is(err, ErrRecipeNotFound))
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	breakfasts, err := p.Search(ctx, Query{Type: TypeBreakfast, Count: 50})
	require.NoError(t, err)
	assert.Len(t, breakfasts, mockCatalogSize)

	smoothies, err := p.Search(ctx, Query{Text: "smoothie", Type: TypeDrink, Count: 10})
	require.NoError(t, err)
	require.Len(t, smoothies, 10)
	drinks, err := p.Search(ctx, Query{Type: TypeDrink, Count: 10})
	require.NoError(t, err)
	assert.NotEqual(t, smoothies[0].ID, drinks[0].ID)

	unknown, err := p.Search(ctx, Query{Type: "appetizer", Count: 10})
	require.NoError(t, err)
	assert.Empty(t, unknown)

	recs, skipped := engine.NormalizeAll(breakfasts, "")
	assert.Zero(t, skipped)
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.Calories, 300)
		assert.LessOrEqual(t, r.Calories, 600)
	}

	detail, err := p.Information(ctx, smoothies[3].ID)
	require.NoError(t, err)
	assert.Equal(t, smoothies[3].Title, detail.Title)
	assert.NotEmpty(t, detail.Steps)

	_, err = p.Information(ctx, "42")
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestNewProvider(t *testing.T) {
	assert.IsType(t, &MockProvider{}, NewProvider(&config.Config{}))
	assert.IsType(t, &SpoonacularProvider{}, NewProvider(&config.Config{RecipeProvider: "spoonacular"}))
}
