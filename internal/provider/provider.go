package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/mealweek/internal/engine"
)

// Recipe types understood by the search endpoint.
const (
	TypeBreakfast  = "breakfast"
	TypeMainCourse = "main course"
	TypeSnack      = "snack"
	TypeDrink      = "drink"
	TypeDessert    = "dessert"
)

var ErrRecipeNotFound = errors.New("recipe not found")

// Provider is a source of raw recipes and their details.
type Provider interface {
	// Search returns up to q.Count recipes. Fewer, or none, is not an error.
	Search(ctx context.Context, q Query) ([]engine.RawRecipe, error)
	// Information returns the full detail of one recipe.
	Information(ctx context.Context, id string) (*RecipeDetail, error)
}

type Query struct {
	Text  string
	Type  string
	Count int
}

func (q Query) String() string {
	if q.Text == "" {
		return fmt.Sprintf("type=%s count=%d", q.Type, q.Count)
	}
	return fmt.Sprintf("query=%s type=%s count=%d", q.Text, q.Type, q.Count)
}

type Ingredient struct {
	Name     string  `json:"name"`
	Original string  `json:"original"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

type InstructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// RecipeDetail is the lazily loaded part of a recipe.
type RecipeDetail struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Image          *string           `json:"image,omitempty"`
	ReadyInMinutes *int              `json:"ready_in_minutes,omitempty"`
	Servings       *int              `json:"servings,omitempty"`
	SourceURL      string            `json:"source_url,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	Steps          []InstructionStep `json:"steps"`
	Ingredients    []Ingredient      `json:"ingredients"`
}

// RecipeFetchError is returned for any failed provider call.
type RecipeFetchError struct {
	Op         string
	Query      string
	StatusCode int
	Err        error
}

func (e *RecipeFetchError) Error() string {
	msg := fmt.Sprintf("recipe provider %s (%s) failed", e.Op, e.Query)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RecipeFetchError) Unwrap() error { return e.Err }
