package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/engine"
	"github.com/fdg312/mealweek/internal/planning"
	"github.com/fdg312/mealweek/internal/provider"
)

var dayNames = [engine.Days]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func main() {
	calories := flag.Float64("calories", 2000, "daily calorie target, kcal")
	protein := flag.Float64("protein", 80, "daily protein target, g")
	format := flag.String("format", "table", "output format: table|json")
	flag.Parse()

	if *format != "table" && *format != "json" {
		log.Fatalf("unsupported format %q (allowed: table, json)", *format)
	}

	cfg := config.Load()

	rules, err := planning.RulesFromConfig(cfg.Planner)
	if err != nil {
		log.Fatalf("FATAL planner config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := provider.NewProvider(cfg)
	log.Printf("planweek: provider=%s calories=%.0f protein=%.0f", cfg.RecipeProvider, *calories, *protein)

	assembler := planning.NewPoolAssembler(p, planning.PoolSizesFromConfig(cfg.Planner))
	pools, err := assembler.AssemblePools(ctx)
	if err != nil {
		log.Fatalf("pool assembly failed: %v", err)
	}
	log.Printf("planweek: pools %v", pools.Sizes())

	solveCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Planner.SolveTimeoutSeconds)*time.Second)
	defer cancel()

	start := time.Now()
	week, err := engine.New(engine.WithRules(rules)).Plan(solveCtx, pools, engine.NutritionTarget{
		Calories: *calories,
		Protein:  *protein,
	})
	if err != nil {
		var infeasible *engine.InfeasiblePlanError
		if errors.As(err, &infeasible) {
			log.Fatalf("no plan: status=%s (try other targets or larger pools)", infeasible.Status)
		}
		log.Fatalf("planning failed: %v", err)
	}
	log.Printf("planweek: solved in %s, %d assignments", time.Since(start).Round(time.Millisecond), len(week))

	if *format == "json" {
		err = writeJSON(os.Stdout, week)
	} else {
		err = writeTable(os.Stdout, week)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func writeJSON(w io.Writer, week engine.WeeklyPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Plan   engine.WeeklyPlan             `json:"plan"`
		Totals [engine.Days]engine.DayTotals `json:"totals"`
	}{Plan: week, Totals: week.Totals()})
}

func writeTable(w io.Writer, week engine.WeeklyPlan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	totals := week.Totals()
	for d, day := range week.ByDay() {
		fmt.Fprintf(tw, "%s\t\t\tkcal\tprot\tfat\tcarbs\n", dayNames[d])
		for _, a := range day {
			r := a.Recipe
			title := r.Title
			if r.Subtype != "" {
				title += " (" + r.Subtype + ")"
			}
			fmt.Fprintf(tw, "\t%s\t%s\t%d\t%d\t%d\t%d\n", a.Slot, title, r.Calories, r.Protein, r.Fat, r.Carbs)
		}
		t := totals[d]
		fmt.Fprintf(tw, "\ttotal\t\t%d\t%d\t%d\t%d\n\n", t.Calories, t.Protein, t.Fat, t.Carbs)
	}
	return tw.Flush()
}
