package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/engine"
)

const defaultSpoonacularBaseURL = "https://api.spoonacular.com"

type SpoonacularProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewSpoonacularProvider(cfg *config.Config) *SpoonacularProvider {
	timeoutSeconds := cfg.ProviderTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 15
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.SpoonacularBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSpoonacularBaseURL
	}

	limit := rate.Inf
	burst := 1
	if cfg.ProviderRPS > 0 {
		limit = rate.Limit(cfg.ProviderRPS)
		burst = cfg.ProviderRPS
	}

	return &SpoonacularProvider{
		apiKey:  cfg.SpoonacularAPIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Search runs complexSearch restricted to vegan, alcohol-free recipes with
// instructions, including nutrition, in random order.
func (p *SpoonacularProvider) Search(ctx context.Context, q Query) ([]engine.RawRecipe, error) {
	params := url.Values{}
	if q.Text != "" {
		params.Set("query", q.Text)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	params.Set("diet", "vegan")
	params.Set("number", strconv.Itoa(q.Count))
	params.Set("maxAlcohol", "0")
	params.Set("addRecipeInformation", "true")
	params.Set("addRecipeNutrition", "true")
	params.Set("fillIngredients", "true")
	params.Set("instructionsRequired", "true")
	params.Set("sort", "random")

	var parsed complexSearchResponse
	if err := p.get(ctx, "/recipes/complexSearch", params, &parsed); err != nil {
		return nil, withOp(err, "search", q.String())
	}

	out := make([]engine.RawRecipe, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, r.toRaw())
	}
	return out, nil
}

func (p *SpoonacularProvider) Information(ctx context.Context, id string) (*RecipeDetail, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, &RecipeFetchError{Op: "information", Query: id, StatusCode: http.StatusNotFound, Err: ErrRecipeNotFound}
	}

	params := url.Values{}
	params.Set("includeNutrition", "false")

	var parsed informationResponse
	if err := p.get(ctx, "/recipes/"+id+"/information", params, &parsed); err != nil {
		return nil, withOp(err, "information", id)
	}
	return parsed.toDetail(), nil
}

func (p *SpoonacularProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return &RecipeFetchError{Err: err}
	}

	params.Set("apiKey", p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &RecipeFetchError{Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &RecipeFetchError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RecipeFetchError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return &RecipeFetchError{StatusCode: resp.StatusCode, Err: ErrRecipeNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RecipeFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &RecipeFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func withOp(err error, op, query string) error {
	if fe, ok := err.(*RecipeFetchError); ok {
		fe.Op = op
		fe.Query = query
		return fe
	}
	return &RecipeFetchError{Op: op, Query: query, Err: err}
}

type complexSearchResponse struct {
	Results      []searchResult `json:"results"`
	Offset       int            `json:"offset"`
	Number       int            `json:"number"`
	TotalResults int            `json:"totalResults"`
}

type searchResult struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Image          *string `json:"image"`
	ReadyInMinutes *int    `json:"readyInMinutes"`
	Servings       *int    `json:"servings"`
	Nutrition      *struct {
		Nutrients []engine.RawNutrient `json:"nutrients"`
	} `json:"nutrition"`
}

func (r searchResult) toRaw() engine.RawRecipe {
	raw := engine.RawRecipe{
		Title:          r.Title,
		Image:          r.Image,
		ReadyInMinutes: r.ReadyInMinutes,
		Servings:       r.Servings,
	}
	if r.ID != 0 {
		raw.ID = strconv.FormatInt(r.ID, 10)
	}
	if r.Nutrition != nil {
		raw.Nutrients = r.Nutrition.Nutrients
	}
	return raw
}

type informationResponse struct {
	ID                  int64   `json:"id"`
	Title               string  `json:"title"`
	Image               *string `json:"image"`
	ReadyInMinutes      *int    `json:"readyInMinutes"`
	Servings            *int    `json:"servings"`
	SourceURL           string  `json:"sourceUrl"`
	Summary             string  `json:"summary"`
	Instructions        string  `json:"instructions"`
	ExtendedIngredients []struct {
		Name     string  `json:"name"`
		Original string  `json:"original"`
		Amount   float64 `json:"amount"`
		Unit     string  `json:"unit"`
	} `json:"extendedIngredients"`
	AnalyzedInstructions []struct {
		Steps []struct {
			Number int    `json:"number"`
			Step   string `json:"step"`
		} `json:"steps"`
	} `json:"analyzedInstructions"`
}

func (r informationResponse) toDetail() *RecipeDetail {
	d := &RecipeDetail{
		ID:             strconv.FormatInt(r.ID, 10),
		Title:          r.Title,
		Image:          r.Image,
		ReadyInMinutes: r.ReadyInMinutes,
		Servings:       r.Servings,
		SourceURL:      r.SourceURL,
		Summary:        r.Summary,
		Instructions:   r.Instructions,
		Steps:          []InstructionStep{},
		Ingredients:    make([]Ingredient, 0, len(r.ExtendedIngredients)),
	}
	for _, ing := range r.ExtendedIngredients {
		d.Ingredients = append(d.Ingredients, Ingredient{
			Name:     ing.Name,
			Original: ing.Original,
			Amount:   ing.Amount,
			Unit:     ing.Unit,
		})
	}
	for _, block := range r.AnalyzedInstructions {
		for _, s := range block.Steps {
			d.Steps = append(d.Steps, InstructionStep{Number: s.Number, Step: s.Step})
		}
	}
	return d
}
