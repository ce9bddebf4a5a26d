package provider

import (
	"strings"

	"github.com/fdg312/mealweek/internal/config"
)

const (
	ModeMock        = "mock"
	ModeSpoonacular = "spoonacular"
)

func NewProvider(cfg *config.Config) Provider {
	mode := strings.ToLower(strings.TrimSpace(cfg.RecipeProvider))
	if mode == "" {
		mode = ModeMock
	}

	switch mode {
	case ModeSpoonacular:
		return NewSpoonacularProvider(cfg)
	default:
		return NewMockProvider()
	}
}
