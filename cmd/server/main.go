package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mkulima/asha/internal/assistant"
	"github.com/mkulima/asha/internal/database"
	"github.com/mkulima/asha/internal/firestore"
	"github.com/mkulima/asha/internal/handlers"
	"github.com/mkulima/asha/internal/middleware"
	"github.com/mkulima/asha/internal/services"
	"github.com/mkulima/asha/internal/telemetry"
	"github.com/mkulima/asha/pkg/cache"
	"github.com/mkulima/asha/pkg/config"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// relationalStore is the session, message and route backend selected by
// STORE_DRIVER.
type relationalStore interface {
	services.ConversationRepository
	handlers.RouteFinder
	handlers.Pinger
	Close() error
}

// @title           Asha Assistant API
// @version         1.0
// @description     Conversational farming assistant backed by the Mkulima marketplace, farm forecasts and logistics routes.
//
// @contact.name   API Support
// @contact.email  dev@mkulima.co.ke
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a Firebase ID token.
func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Server.Environment == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("env", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Msg("Starting Asha assistant service")

	if cfg.Identity.ProjectID == "" {
		log.Warn().Msg("FIREBASE_PROJECT_ID is not set; authenticated requests will fail")
	}
	if cfg.ServiceAccount.CredentialJSON == "" {
		log.Warn().Msg("FIREBASE_SERVICE_ACCOUNT is not set; marketplace, farm and profile lookups will degrade")
	}

	ctx := context.Background()

	// Initialize tracing
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Initialize relational store
	store := openStore(ctx, cfg)
	defer store.Close()

	// Initialize Redis
	redisDB, err := database.NewRedisDB(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisDB.Close()

	// Initialize cache
	var forecastCache *cache.Cache
	if cfg.Cache.Enabled {
		forecastCache = cache.NewCache(redisDB.Client())
	}

	// Initialize services
	upstreamClient := &http.Client{Timeout: 15 * time.Second}

	keys := services.NewKeySet(cfg.Identity.JWKSURL, upstreamClient)
	verifier := services.NewIdentityVerifier(cfg.Identity.ProjectID, keys)

	minter := services.NewServiceAccountMinter(cfg.ServiceAccount, upstreamClient)
	documents := firestore.NewClient(cfg.ServiceAccount.DocumentsURL, cfg.Identity.ProjectID, minter, upstreamClient)
	catalog := assistant.NewCatalog(documents)

	forecasts := services.NewForecastClient(cfg.Forecast.URL, &http.Client{Timeout: cfg.Forecast.Timeout}, forecastCache, cfg.Cache.ForecastTTL)

	model, err := services.NewLanguageModel(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize language model")
	}
	if model == nil {
		log.Info().Msg("No language model configured; general questions use the fixed fallback reply")
	}

	conversations := services.NewConversationStore(store)
	orchestrator := assistant.NewOrchestrator(conversations, catalog, forecasts, services.NewLLMFallback(model))

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(orchestrator)
	logisticsHandler := handlers.NewLogisticsHandler(store)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		cfg.Store.Driver: store,
		"redis":          redisDB,
	})

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisDB, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.WindowDuration)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer())
	r.Use(middleware.Logger())
	r.Use(middleware.Tracing())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.OriginGate(cfg.CORS.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	notFound := func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, r, http.StatusNotFound, "Not found")
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// Health check endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", middleware.MetricsHandler())

	// Swagger API documentation
	r.Method(http.MethodGet, "/api/docs/*", handlers.Docs())

	// Protected endpoints (require identity token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier))
		r.With(rateLimiter.Limit("chat")).Post("/asha/chat", chatHandler.Chat)
		r.With(rateLimiter.Limit("logistics")).Get("/logistics", logisticsHandler.Route)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server stopped gracefully")
}

// openStore connects the configured relational backend. The Postgres
// schema is applied on every start; Supabase tables are managed in the
// Supabase project.
func openStore(ctx context.Context, cfg *config.Config) relationalStore {
	switch cfg.Store.Driver {
	case config.StoreDriverSupabase:
		supabaseDB, err := database.NewSupabaseDB(&cfg.Supabase)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Supabase client")
		}
		return supabaseDB
	default:
		postgresDB, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		if err := postgresDB.RunMigrations(ctx, database.Schema); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		return postgresDB
	}
}
