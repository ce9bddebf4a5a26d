package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/dbmigrate"
	"github.com/fdg312/mealweek/internal/httpserver"
)

func main() {
	cfg := config.Load()

	printStartupBanner(cfg)

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectTarget(cfg, true)
		if err != nil {
			log.Fatalf("FATAL startup migrations: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = dbmigrate.Run(ctx, "up", target)
		cancel()
		if err != nil {
			log.Fatalf("FATAL startup migrations failed: %v", err)
		}
		log.Printf("INFO startup migrations: completed")
	}

	validateProductionConfig(cfg)

	server, err := httpserver.New(cfg)
	if err != nil {
		log.Fatalf("FATAL startup: %v", err)
	}

	log.Fatal(server.Start())
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are printed only as masked indicators ("set" / "not set").
func printStartupBanner(cfg *config.Config) {
	log.Println("========== Mealweek API ==========")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)

	// ---- Database ----
	log.Println("---- database ----")
	log.Printf("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled))
	log.Printf("  pooled           = %s", setOrNot(cfg.DatabaseURLPooled))
	log.Printf("  direct           = %s", setOrNot(cfg.DatabaseURLDirect))
	log.Printf("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)
	if cfg.RunMigrationsOnStartup {
		if cfg.DatabaseURLDirect != "" {
			log.Printf("  migrations_via   = DATABASE_URL_DIRECT")
		} else {
			log.Printf("  migrations_via   = (will fail: DATABASE_URL_DIRECT not set)")
		}
	}

	// ---- Auth ----
	log.Println("---- auth ----")
	log.Printf("  auth_mode        = %s", cfg.AuthMode)
	log.Printf("  auth_required    = %t", cfg.AuthRequired)
	log.Printf("  jwt_secret       = %s", secretStatus(cfg.JWTSecret, "change_me"))
	log.Printf("  default_user     = %s", nonEmptyOrDash(cfg.DefaultUserID))

	// ---- Recipes ----
	log.Println("---- recipes ----")
	log.Printf("  provider         = %s", nonEmptyOrDash(cfg.RecipeProvider))
	if cfg.RecipeProvider == "spoonacular" {
		log.Printf("  spoonacular_key  = %s", setOrNot(cfg.SpoonacularAPIKey))
		log.Printf("  provider_rps     = %d", cfg.ProviderRPS)
	}
	log.Printf("  detail_cache     = %s (ttl=%dh)", describeRedis(cfg.RedisURL), cfg.RecipeDetailTTLHours)

	// ---- Planner ----
	log.Println("---- planner ----")
	p := cfg.Planner
	log.Printf("  solve_timeout    = %ds", p.SolveTimeoutSeconds)
	log.Printf("  tolerance        = kcal±%v protein±%v", p.CalorieTolerance, p.ProteinTolerance)
	log.Printf("  dessert_days     = %d", p.DessertDays)
	log.Printf("  mains            = unique %d..%d, max_repeats=%d", p.MinUniqueMains, p.MaxUniqueMains, p.MaxRepeatsMain)
	log.Printf("  snacks           = solid>=%d smoothie>=%d drink>=%d", p.MinSolidSnacks, p.MinSmoothies, p.MinDrinks)
	log.Printf("  pools            = b=%d m=%d s=%d sm=%d dr=%d d=%d",
		p.BreakfastPoolSize, p.MainPoolSize, p.SnackPoolSize, p.SmoothiePoolSize, p.DrinkPoolSize, p.DessertPoolSize)

	// ---- Blob / S3 ----
	log.Println("---- blob ----")
	log.Printf("  blob_mode        = %s", cfg.Blob.Mode)
	log.Printf("  exports_mode     = %s (effective=%s)", displayExportsMode(cfg), cfg.Blob.EffectiveExportsMode())
	log.Printf("  exports_per_user = %d", cfg.ExportsMaxPerUser)
	if cfg.Blob.Mode != config.BlobModeLocal || cfg.Blob.EffectiveExportsMode() != config.BlobModeLocal {
		log.Printf("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}

	log.Printf("  metrics          = %t", cfg.MetricsEnabled)
	log.Println("==================================")
}

// validateProductionConfig performs fatal checks that only matter in non-local envs.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "staging"

	// S3 hard-mode validation
	needsS3 := cfg.Blob.Mode == config.BlobModeS3 || cfg.Blob.EffectiveExportsMode() == config.BlobModeS3
	if needsS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			log.Fatalf("FATAL blob: BLOB_MODE or EXPORTS_MODE is 's3' but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if cfg.RecipeProvider == "spoonacular" && strings.TrimSpace(cfg.SpoonacularAPIKey) == "" {
		log.Fatal("FATAL recipes: RECIPE_PROVIDER=spoonacular but SPOONACULAR_API_KEY is not set")
	}

	// JWT_SECRET must not be default in production
	if isProd && cfg.AuthRequired && cfg.JWTSecret == "change_me" {
		log.Fatalf("FATAL auth: JWT_SECRET must not be 'change_me' in %s with AUTH_REQUIRED=1", cfg.Env)
	}

	if isProd && cfg.AuthMode == "dev" && cfg.AuthRequired {
		log.Printf("WARN auth: AUTH_MODE=dev in %s issues tokens for any user_id", cfg.Env)
	}

	// DATABASE_URL must be set in production
	if isProd && cfg.DatabaseURL == "" {
		log.Fatalf("FATAL db: no DATABASE_URL configured in %s", cfg.Env)
	}
}

// ---- helpers (no secrets) ----

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}

func describeRedis(url string) string {
	if strings.TrimSpace(url) == "" {
		return "memory"
	}
	return "redis (REDIS_URL set)"
}

func displayExportsMode(cfg *config.Config) string {
	if cfg.Blob.ExportsModeSet {
		return cfg.Blob.ExportsMode
	}
	return fmt.Sprintf("(inherits BLOB_MODE=%s)", cfg.Blob.Mode)
}
