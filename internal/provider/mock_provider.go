package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fdg312/mealweek/internal/engine"
)

const mockCatalogSize = 40

type mockCategory struct {
	base       int
	names      []string
	kcalLo     int
	kcalHi     int
	proteinLo  int
	proteinHi  int
	readyInMin int
}

var mockCategories = map[string]mockCategory{
	"breakfast": {base: 100000, names: []string{"Overnight Oats", "Tofu Scramble", "Chia Pudding", "Peanut Butter Toast", "Buckwheat Pancakes", "Granola Bowl"}, kcalLo: 300, kcalHi: 600, proteinLo: 10, proteinHi: 28, readyInMin: 15},
	"main":      {base: 200000, names: []string{"Lentil Curry", "Chickpea Stew", "Tempeh Stir Fry", "Black Bean Chili", "Seitan Burrito", "Tofu Noodle Bowl"}, kcalLo: 450, kcalHi: 850, proteinLo: 20, proteinHi: 45, readyInMin: 40},
	"snack":     {base: 300000, names: []string{"Hummus Plate", "Roasted Chickpeas", "Trail Mix", "Edamame", "Rice Cakes", "Energy Balls"}, kcalLo: 120, kcalHi: 280, proteinLo: 4, proteinHi: 14, readyInMin: 10},
	"smoothie":  {base: 400000, names: []string{"Green Smoothie", "Berry Smoothie", "Mango Smoothie", "Cacao Smoothie"}, kcalLo: 150, kcalHi: 300, proteinLo: 5, proteinHi: 16, readyInMin: 5},
	"drink":     {base: 500000, names: []string{"Oat Latte", "Golden Milk", "Soy Chai", "Almond Cocoa"}, kcalLo: 80, kcalHi: 220, proteinLo: 2, proteinHi: 10, readyInMin: 5},
	"dessert":   {base: 600000, names: []string{"Banana Nice Cream", "Date Brownie", "Coconut Panna Cotta", "Apple Crumble"}, kcalLo: 150, kcalHi: 350, proteinLo: 2, proteinHi: 8, readyInMin: 30},
}

// MockProvider serves a fixed generated catalog for local development.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Search(ctx context.Context, q Query) ([]engine.RawRecipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RecipeFetchError{Op: "search", Query: q.String(), Err: err}
	}

	name := mockCategoryFor(q)
	cat, ok := mockCategories[name]
	if !ok {
		return []engine.RawRecipe{}, nil
	}

	n := q.Count
	if n > mockCatalogSize {
		n = mockCatalogSize
	}
	out := make([]engine.RawRecipe, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, cat.recipe(i))
	}
	return out, nil
}

func (p *MockProvider) Information(ctx context.Context, id string) (*RecipeDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RecipeFetchError{Op: "information", Query: id, Err: err}
	}

	num, err := strconv.Atoi(id)
	if err == nil {
		for _, cat := range mockCategories {
			i := num - cat.base
			if i >= 0 && i < mockCatalogSize {
				return cat.detail(i), nil
			}
		}
	}
	return nil, &RecipeFetchError{Op: "information", Query: id, StatusCode: http.StatusNotFound, Err: ErrRecipeNotFound}
}

func mockCategoryFor(q Query) string {
	if strings.Contains(strings.ToLower(q.Text), "smoothie") {
		return "smoothie"
	}
	switch q.Type {
	case TypeBreakfast:
		return "breakfast"
	case TypeMainCourse:
		return "main"
	case TypeSnack:
		return "snack"
	case TypeDrink:
		return "drink"
	case TypeDessert:
		return "dessert"
	}
	return ""
}

// spread maps index i onto [lo, hi] in a fixed scattered order.
func spread(i, lo, hi, step int) int {
	span := (hi-lo)/step + 1
	return lo + ((i*7)%span)*step
}

func (c mockCategory) recipe(i int) engine.RawRecipe {
	kcal := spread(i, c.kcalLo, c.kcalHi, 10)
	protein := spread(i+3, c.proteinLo, c.proteinHi, 1)
	fat := kcal / 30
	carbs := (kcal - protein*4 - fat*9) / 4
	if carbs < 0 {
		carbs = 0
	}
	image := fmt.Sprintf("https://img.mealweek.local/%d.jpg", c.base+i)
	ready := c.readyInMin + (i%4)*5
	servings := 1 + i%3

	return engine.RawRecipe{
		ID:             strconv.Itoa(c.base + i),
		Title:          fmt.Sprintf("%s #%d", c.names[i%len(c.names)], i+1),
		Image:          &image,
		ReadyInMinutes: &ready,
		Servings:       &servings,
		Nutrients: []engine.RawNutrient{
			{Name: "Calories", Amount: float64(kcal), Unit: "kcal"},
			{Name: "Protein", Amount: float64(protein), Unit: "g"},
			{Name: "Fat", Amount: float64(fat), Unit: "g"},
			{Name: "Carbohydrates", Amount: float64(carbs), Unit: "g"},
		},
	}
}

func (c mockCategory) detail(i int) *RecipeDetail {
	raw := c.recipe(i)
	return &RecipeDetail{
		ID:             raw.ID,
		Title:          raw.Title,
		Image:          raw.Image,
		ReadyInMinutes: raw.ReadyInMinutes,
		Servings:       raw.Servings,
		Summary:        "A simple vegan recipe from the local catalog.",
		Instructions:   "Prepare the ingredients. Combine and cook. Serve.",
		Steps: []InstructionStep{
			{Number: 1, Step: "Prepare the ingredients."},
			{Number: 2, Step: "Combine and cook."},
			{Number: 3, Step: "Serve."},
		},
		Ingredients: []Ingredient{
			{Name: "base", Original: "1 cup base", Amount: 1, Unit: "cup"},
			{Name: "seasoning", Original: "1 tsp seasoning", Amount: 1, Unit: "tsp"},
		},
	}
}
