package planning

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/engine"
	"github.com/fdg312/mealweek/internal/provider"
)

// PoolSizes is how many candidates to request per fetch.
type PoolSizes struct {
	Breakfast int
	Main      int
	Snack     int
	Smoothie  int
	Drink     int
	Dessert   int
}

func PoolSizesFromConfig(p config.PlannerConfig) PoolSizes {
	return PoolSizes{
		Breakfast: p.BreakfastPoolSize,
		Main:      p.MainPoolSize,
		Snack:     p.SnackPoolSize,
		Smoothie:  p.SmoothiePoolSize,
		Drink:     p.DrinkPoolSize,
		Dessert:   p.DessertPoolSize,
	}
}

// fetch is one provider search feeding one pool.
type fetch struct {
	query   provider.Query
	pool    string
	subtype string
}

// fetches in pool composition order: within the snack pool solid snacks
// come first, then smoothies, then drinks.
func (s PoolSizes) fetches() []fetch {
	return []fetch{
		{query: provider.Query{Type: provider.TypeBreakfast, Count: s.Breakfast}, pool: engine.PoolBreakfast},
		{query: provider.Query{Type: provider.TypeMainCourse, Count: s.Main}, pool: engine.PoolMain},
		{query: provider.Query{Type: provider.TypeSnack, Count: s.Snack}, pool: engine.PoolSnack, subtype: engine.SubtypeSolid},
		{query: provider.Query{Text: "smoothie", Type: provider.TypeDrink, Count: s.Smoothie}, pool: engine.PoolSnack, subtype: engine.SubtypeSmoothie},
		{query: provider.Query{Type: provider.TypeDrink, Count: s.Drink}, pool: engine.PoolSnack, subtype: engine.SubtypeDrink},
		{query: provider.Query{Type: provider.TypeDessert, Count: s.Dessert}, pool: engine.PoolDessert},
	}
}

// PoolAssembler fetches and normalizes candidate pools for one planning run.
type PoolAssembler struct {
	provider provider.Provider
	sizes    PoolSizes
}

func NewPoolAssembler(p provider.Provider, sizes PoolSizes) *PoolAssembler {
	return &PoolAssembler{provider: p, sizes: sizes}
}

// AssemblePools runs all searches concurrently. The first provider failure
// cancels the rest and is returned as is.
func (a *PoolAssembler) AssemblePools(ctx context.Context) (*engine.RecipePoolSet, error) {
	fetches := a.sizes.fetches()
	results := make([][]engine.RawRecipe, len(fetches))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fetches {
		if f.query.Count <= 0 {
			continue
		}
		g.Go(func() error {
			raws, err := a.provider.Search(gctx, f.query)
			if err != nil {
				return err
			}
			results[i] = raws
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pools := engine.NewRecipePoolSet()
	for _, name := range []string{engine.PoolBreakfast, engine.PoolMain, engine.PoolSnack, engine.PoolDessert} {
		pools.Add(name)
	}
	for i, f := range fetches {
		records, skipped := engine.NormalizeAll(results[i], f.subtype)
		if skipped > 0 {
			log.Printf("WARN planning.pools: %s skipped=%d malformed records", f.query, skipped)
		}
		added := pools.Add(f.pool, records...)
		if dup := len(records) - added; dup > 0 {
			log.Printf("INFO planning.pools: %s duplicates=%d dropped from pool=%s", f.query, dup, f.pool)
		}
	}
	return pools, nil
}
