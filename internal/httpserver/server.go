package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/mealweek/internal/auth"
	"github.com/fdg312/mealweek/internal/blob"
	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/engine"
	"github.com/fdg312/mealweek/internal/exports"
	"github.com/fdg312/mealweek/internal/mealplans"
	"github.com/fdg312/mealweek/internal/nutrition"
	"github.com/fdg312/mealweek/internal/planning"
	"github.com/fdg312/mealweek/internal/provider"
	"github.com/fdg312/mealweek/internal/recipes"
	"github.com/fdg312/mealweek/internal/storage"
	"github.com/fdg312/mealweek/internal/storage/memory"
	"github.com/fdg312/mealweek/internal/storage/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	registry       *prometheus.Registry
	httpMetrics    *httpMetrics
	authMiddleware *auth.Middleware
	provider       provider.Provider
}

// Option overrides a server dependency, mostly for tests.
type Option func(*Server)

// WithProvider replaces the recipe provider chosen from config.
func WithProvider(p provider.Provider) Option {
	return func(s *Server) { s.provider = p }
}

// WithStorage replaces the storage chosen from config.
func WithStorage(st storage.Storage) Option {
	return func(s *Server) { s.storage = st }
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		config:   cfg,
		mux:      http.NewServeMux(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.httpMetrics = newHTTPMetrics(s.registry)

	if s.storage == nil {
		s.initStorage()
	}
	if s.provider == nil {
		s.provider = provider.NewProvider(cfg)
	}

	if err := s.routes(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// initStorage инициализирует storage (Memory или Postgres)
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		log.Println("INFO storage: mode=memory")
		s.storage = memory.New()
		return
	}

	log.Println("INFO storage: подключение к PostgreSQL...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		log.Printf("WARN storage: ошибка подключения к PostgreSQL: %v, fallback=memory", err)
		s.storage = memory.New()
		return
	}
	log.Println("INFO storage: mode=postgres")
	s.storage = pgStorage
}

// routes регистрирует маршруты
func (s *Server) routes() error {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	if s.config.MetricsEnabled {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}

	// Auth API
	authService := auth.NewService(s.config)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)
	if s.config.AuthMode == "dev" {
		s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)
	}

	// Nutrition targets
	nutritionHandler := nutrition.NewHandler(nutrition.NewService(s.storage.NutritionTargets()))
	s.mux.HandleFunc("GET /v1/nutrition/targets", nutritionHandler.HandleGetTargets)
	s.mux.HandleFunc("PUT /v1/nutrition/targets", nutritionHandler.HandleUpsertTargets)
	s.mux.HandleFunc("POST /v1/nutrition/targets/calculate", nutritionHandler.HandleCalculate)

	// Weekly plan generation
	rules, err := planning.RulesFromConfig(s.config.Planner)
	if err != nil {
		return fmt.Errorf("planner config: %w", err)
	}
	planner := engine.New(
		engine.WithRules(rules),
		engine.WithObserver(planning.NewMetrics(s.registry)),
	)
	assembler := planning.NewPoolAssembler(s.provider, planning.PoolSizesFromConfig(s.config.Planner))
	solveTimeout := time.Duration(s.config.Planner.SolveTimeoutSeconds) * time.Second
	planningService := planning.NewService(s.storage.NutritionTargets(), s.storage.MealPlans(), assembler, planner, solveTimeout)
	planningHandler := planning.NewHandler(planningService)
	s.mux.HandleFunc("POST /v1/meal/plan/generate", planningHandler.HandleGenerate)

	// Active plan
	mealPlansHandler := mealplans.NewHandler(mealplans.NewService(s.storage.MealPlans()))
	s.mux.HandleFunc("GET /v1/meal/plan", mealPlansHandler.HandleGet)
	s.mux.HandleFunc("DELETE /v1/meal/plan", mealPlansHandler.HandleDelete)
	s.mux.HandleFunc("GET /v1/meal/today", mealPlansHandler.HandleGetToday)

	// Recipe details
	recipesHandler := recipes.NewHandler(recipes.NewService(s.provider, recipes.NewDetailCache(s.config)))
	s.mux.HandleFunc("GET /v1/recipes/{id}", recipesHandler.HandleGetDetail)

	// Plan exports
	blobStore, mode, err := blob.NewExportsStore(s.config.Blob, log.Default())
	if err != nil {
		return fmt.Errorf("exports storage: %w", err)
	}
	log.Printf("INFO exports: mode=%s max_per_user=%d", mode, s.config.ExportsMaxPerUser)
	exportsService := exports.NewService(s.storage.Exports(), s.storage.MealPlans(), blobStore, exports.Options{
		MaxPerUser:      s.config.ExportsMaxPerUser,
		PresignTTL:      time.Duration(s.config.Blob.S3.PresignTTLSeconds) * time.Second,
		PublicBaseURL:   s.config.Blob.S3.PublicBaseURL,
		PreferPublicURL: s.config.Blob.S3.PreferPublicURL,
	})
	exportsHandler := exports.NewHandlers(exportsService)
	s.mux.HandleFunc("POST /v1/meal/plan/exports", exportsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/meal/plan/exports", exportsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/meal/plan/exports/{id}/download", exportsHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/meal/plan/exports/{id}", exportsHandler.HandleDelete)

	return nil
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Handler returns the router wrapped in the middleware chain
// (outermost first): CORS → Rate Limit → Auth → Metrics → Router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.httpMetrics.middleware(handler)
	if s.authMiddleware != nil && s.config.AuthMode != "none" {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	log.Printf("Сервер запущен на http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Meal plan API: http://localhost%s/v1/meal/plan\n", addr)

	return http.ListenAndServe(addr, s.Handler())
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
