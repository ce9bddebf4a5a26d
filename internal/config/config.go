package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string
	PresignTTLSeconds int
	PreferPublicURL   bool
}

// fields pairs each S3 variable with its value. The public base URL is
// required only when exports link to it instead of presigned URLs.
func (c S3Config) fields() []struct {
	env      string
	value    string
	required bool
} {
	return []struct {
		env      string
		value    string
		required bool
	}{
		{"S3_ENDPOINT", c.Endpoint, true},
		{"S3_REGION", c.Region, true},
		{"S3_BUCKET", c.Bucket, true},
		{"S3_ACCESS_KEY_ID", c.AccessKeyID, true},
		{"S3_SECRET_ACCESS_KEY", c.SecretAccessKey, true},
		{"S3_PUBLIC_BASE_URL", c.PublicBaseURL, c.PreferPublicURL},
	}
}

// MissingRequired lists the unset S3 variables in env order.
func (c S3Config) MissingRequired() []string {
	missing := []string{}
	for _, f := range c.fields() {
		if f.required && strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.env)
		}
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

// Diagnostics classifies the S3 section for startup logs.
func (c S3Config) Diagnostics() (level, code, msg string) {
	empty := true
	for _, f := range c.fields() {
		if strings.TrimSpace(f.value) != "" {
			empty = false
			break
		}
	}
	switch missing := c.MissingRequired(); {
	case empty:
		return "INFO", "s3_not_configured", "not configured (all empty)"
	case len(missing) > 0:
		return "WARN", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}
	return "INFO", "s3_ready", "ready"
}

// DiagnosticsSummary renders the S3 section with secrets masked.
func (c S3Config) DiagnosticsSummary() string {
	return fmt.Sprintf("endpoint=%s region=%s bucket=%s public_base_url=%s presign_ttl=%ds prefer_public_url=%t access_key_id=%s secret_access_key=%s",
		NonEmptyOrDash(c.Endpoint),
		NonEmptyOrDash(c.Region),
		NonEmptyOrDash(c.Bucket),
		NonEmptyOrDash(c.PublicBaseURL),
		c.PresignTTLSeconds,
		c.PreferPublicURL,
		SetOrNot(c.AccessKeyID),
		SetOrNot(c.SecretAccessKey),
	)
}

// SetOrNot masks a secret for logging.
func SetOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func NonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

type BlobConfig struct {
	Mode           string // local|s3|auto
	ExportsMode    string // local|s3|auto (override)
	ExportsModeSet bool
	S3             S3Config
}

func (c BlobConfig) EffectiveExportsMode() string {
	if c.ExportsModeSet {
		return c.ExportsMode
	}
	return c.Mode
}

// PlannerConfig holds the weekly planning rules and pool sizes.
type PlannerConfig struct {
	SolveTimeoutSeconds int
	CalorieTolerance    float64
	ProteinTolerance    float64
	DessertDays         int
	MinUniqueMains      int
	MaxUniqueMains      int
	MaxRepeatsMain      int
	MinSolidSnacks      int
	MinSmoothies        int
	MinDrinks           int

	BreakfastPoolSize int
	MainPoolSize      int
	SnackPoolSize     int
	SmoothiePoolSize  int
	DrinkPoolSize     int
	DessertPoolSize   int
}

// Config содержит конфигурацию приложения
type Config struct {
	Env      string // local | staging | production
	Port     int
	LogLevel string

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as provided
	DatabaseURLPooled string // DATABASE_URL_POOLED as provided
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	// GenerateRatePerMinute caps plan generations per client; 0 disables.
	GenerateRatePerMinute int

	// Blob / S3
	Blob BlobConfig

	// Plan exports
	ExportsMaxPerUser int

	// Authentication
	AuthMode      string // none | dev
	AuthEnabled   bool
	AuthRequired  bool
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int
	DefaultUserID string

	// Recipe provider
	RecipeProvider         string // mock | spoonacular
	SpoonacularAPIKey      string
	SpoonacularBaseURL     string
	ProviderTimeoutSeconds int
	ProviderRPS            int

	// Recipe detail cache
	RedisURL             string
	RecipeDetailTTLHours int

	Planner PlannerConfig

	MetricsEnabled bool

	// Migrations
	RunMigrationsOnStartup bool
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	// APP_ENV (fallback to ENV, default: local)
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env == "" {
		env = "local"
	}

	port := envInt("PORT", 8080)

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "debug"
	}

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	dbPooled := strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbDirect := strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))

	runtimeDB := dbPooled
	if runtimeDB == "" {
		runtimeDB = dbURL
	}
	if runtimeDB == "" {
		runtimeDB = dbDirect
	}

	// ---------- CORS ----------
	corsOrigins := parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env)
	corsAllowCreds := os.Getenv("CORS_ALLOW_CREDENTIALS") == "1"

	// ---------- Blob / S3 ----------
	blobMode := parseBlobMode("BLOB_MODE", BlobModeLocal)
	exportsModeRaw := strings.ToLower(strings.TrimSpace(os.Getenv("EXPORTS_MODE")))
	exportsModeSet := exportsModeRaw != ""
	exportsMode := exportsModeRaw
	if exportsMode == "" {
		exportsMode = BlobModeLocal
	}
	if exportsMode != BlobModeLocal && exportsMode != BlobModeS3 && exportsMode != BlobModeAuto {
		log.Printf("WARNING: unknown EXPORTS_MODE=%q, fallback to %s", exportsMode, BlobModeLocal)
		exportsMode = BlobModeLocal
	}

	s3PresignTTL := envInt("S3_PRESIGN_TTL_SECONDS", 900)
	if s3PresignTTL <= 0 {
		s3PresignTTL = 900
	}

	s3Cfg := S3Config{
		Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
		Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
		AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		PublicBaseURL:     strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL")),
		PresignTTLSeconds: s3PresignTTL,
		PreferPublicURL:   parseBoolEnv("S3_PREFER_PUBLIC_URL"),
	}

	exportsMaxPerUser := envInt("EXPORTS_MAX_PER_USER", 20)
	if exportsMaxPerUser <= 0 {
		exportsMaxPerUser = 20
	}

	// ---------- Auth ----------
	authMode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if authMode == "" {
		authMode = "none"
	}
	if authMode != "none" && authMode != "dev" {
		log.Printf("WARNING: unknown AUTH_MODE=%q, fallback to none", authMode)
		authMode = "none"
	}
	authEnabled := authMode != "none"
	authRequired := authEnabled && parseBoolEnv("AUTH_REQUIRED")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "change_me"
	}
	if jwtSecret == "change_me" && env != "local" {
		log.Println("WARNING: JWT_SECRET is set to 'change_me' in non-local environment!")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "mealweek"
	}

	// JWT_TTL_MINUTES (default: 10080 = 7 days)
	jwtTTLMinutes := envInt("JWT_TTL_MINUTES", 10080)
	if jwtTTLMinutes <= 0 {
		jwtTTLMinutes = 10080
	}

	defaultUserID := strings.TrimSpace(os.Getenv("DEFAULT_USER_ID"))
	if defaultUserID == "" {
		defaultUserID = "default"
	}

	// ---------- Recipe provider ----------
	recipeProvider := strings.ToLower(strings.TrimSpace(os.Getenv("RECIPE_PROVIDER")))
	if recipeProvider == "" {
		recipeProvider = "mock"
	}
	if recipeProvider != "mock" && recipeProvider != "spoonacular" {
		log.Printf("WARNING: unknown RECIPE_PROVIDER=%q, fallback to mock", recipeProvider)
		recipeProvider = "mock"
	}
	spoonacularAPIKey := strings.TrimSpace(os.Getenv("SPOONACULAR_API_KEY"))
	if recipeProvider == "spoonacular" && spoonacularAPIKey == "" {
		log.Fatal("SPOONACULAR_API_KEY is required when RECIPE_PROVIDER=spoonacular")
	}
	spoonacularBaseURL := strings.TrimSpace(os.Getenv("SPOONACULAR_BASE_URL"))
	if spoonacularBaseURL == "" {
		spoonacularBaseURL = "https://api.spoonacular.com"
	}

	providerTimeout := envInt("PROVIDER_TIMEOUT_SECONDS", 15)
	if providerTimeout <= 0 {
		providerTimeout = 15
	}
	providerRPS := envInt("PROVIDER_RPS", 5)
	if providerRPS < 0 {
		providerRPS = 0
	}

	// ---------- Cache ----------
	recipeDetailTTL := envInt("RECIPE_DETAIL_TTL_HOURS", 168)
	if recipeDetailTTL <= 0 {
		recipeDetailTTL = 168
	}

	return &Config{
		Env:               env,
		Port:              port,
		LogLevel:          logLevel,
		DatabaseURL:       runtimeDB,
		DatabaseURLRaw:    dbURL,
		DatabaseURLPooled: dbPooled,
		DatabaseURLDirect: dbDirect,

		CORSAllowedOrigins:   corsOrigins,
		CORSAllowCredentials: corsAllowCreds,

		RateLimitRPS:   envInt("RATE_LIMIT_RPS", 0),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 0),

		GenerateRatePerMinute: envInt("RATE_LIMIT_GENERATE_PER_MIN", 6),

		Blob: BlobConfig{
			Mode:           blobMode,
			ExportsMode:    exportsMode,
			ExportsModeSet: exportsModeSet,
			S3:             s3Cfg,
		},
		ExportsMaxPerUser: exportsMaxPerUser,

		AuthMode:      authMode,
		AuthEnabled:   authEnabled,
		AuthRequired:  authRequired,
		JWTSecret:     jwtSecret,
		JWTIssuer:     jwtIssuer,
		JWTTTLMinutes: jwtTTLMinutes,
		DefaultUserID: defaultUserID,

		RecipeProvider:         recipeProvider,
		SpoonacularAPIKey:      spoonacularAPIKey,
		SpoonacularBaseURL:     spoonacularBaseURL,
		ProviderTimeoutSeconds: providerTimeout,
		ProviderRPS:            providerRPS,

		RedisURL:             strings.TrimSpace(os.Getenv("REDIS_URL")),
		RecipeDetailTTLHours: recipeDetailTTL,

		Planner: loadPlannerConfig(),

		MetricsEnabled: parseBoolEnv("METRICS_ENABLED"),

		RunMigrationsOnStartup: parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP"),
	}
}

func loadPlannerConfig() PlannerConfig {
	p := PlannerConfig{
		SolveTimeoutSeconds: envInt("PLANNER_SOLVE_TIMEOUT_SECONDS", 30),
		CalorieTolerance:    envFloat("PLANNER_CALORIE_TOLERANCE", 250),
		ProteinTolerance:    envFloat("PLANNER_PROTEIN_TOLERANCE", 10),
		DessertDays:         envInt("PLANNER_DESSERT_DAYS", 3),
		MinUniqueMains:      envInt("PLANNER_MIN_UNIQUE_MAINS", 3),
		MaxUniqueMains:      envInt("PLANNER_MAX_UNIQUE_MAINS", 4),
		MaxRepeatsMain:      envInt("PLANNER_MAX_REPEATS_MAIN", 4),
		MinSolidSnacks:      envInt("PLANNER_MIN_SOLID_SNACKS", 4),
		MinSmoothies:        envInt("PLANNER_MIN_SMOOTHIES", 2),
		MinDrinks:           envInt("PLANNER_MIN_DRINKS", 2),

		BreakfastPoolSize: envInt("POOL_BREAKFAST_SIZE", 50),
		MainPoolSize:      envInt("POOL_MAIN_SIZE", 100),
		SnackPoolSize:     envInt("POOL_SNACK_SIZE", 50),
		SmoothiePoolSize:  envInt("POOL_SMOOTHIE_SIZE", 30),
		DrinkPoolSize:     envInt("POOL_DRINK_SIZE", 30),
		DessertPoolSize:   envInt("POOL_DESSERT_SIZE", 20),
	}

	if p.SolveTimeoutSeconds <= 0 {
		log.Printf("WARNING: PLANNER_SOLVE_TIMEOUT_SECONDS=%d is not positive, fallback to 30", p.SolveTimeoutSeconds)
		p.SolveTimeoutSeconds = 30
	}
	if p.CalorieTolerance < 0 {
		log.Printf("WARNING: PLANNER_CALORIE_TOLERANCE=%v is negative, fallback to 250", p.CalorieTolerance)
		p.CalorieTolerance = 250
	}
	if p.ProteinTolerance < 0 {
		log.Printf("WARNING: PLANNER_PROTEIN_TOLERANCE=%v is negative, fallback to 10", p.ProteinTolerance)
		p.ProteinTolerance = 10
	}
	if p.DessertDays < 0 || p.DessertDays > 4 {
		// more than 4 days cannot avoid adjacency within a week
		log.Printf("WARNING: PLANNER_DESSERT_DAYS=%d out of range 0..4, fallback to 3", p.DessertDays)
		p.DessertDays = 3
	}
	return p
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS env var.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:5173"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func parseBlobMode(key string, defaultVal string) string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if mode == "" {
		return defaultVal
	}
	switch mode {
	case BlobModeLocal, BlobModeS3, BlobModeAuto:
		return mode
	default:
		log.Printf("WARNING: unknown %s=%q, fallback to %s", key, mode, defaultVal)
		return defaultVal
	}
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, fallback to %d", key, s, defaultVal)
		return defaultVal
	}
	return v
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, fallback to %v", key, s, defaultVal)
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
