package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/notes2gogo/backend/internal/adapters/cache"
	"github.com/notes2gogo/backend/internal/adapters/database"
	"github.com/notes2gogo/backend/internal/api/handlers"
	"github.com/notes2gogo/backend/internal/api/middleware"
	"github.com/notes2gogo/backend/internal/api/routes"
	"github.com/notes2gogo/backend/internal/application/services"
	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/clients/postgres"
	"github.com/notes2gogo/backend/internal/infrastructure/clients/redis"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
	"github.com/notes2gogo/backend/pkg/clock"
	"github.com/notes2gogo/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Database).Msg("PostgreSQL client initialized")

	// Redis is optional: without it saved searches and reports are served uncached
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Redis client, continuing without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	clk := clock.System{}
	limits := entities.PageLimits{DefaultPerPage: cfg.Search.DefaultPerPage, MaxPerPage: cfg.Search.MaxPerPage}

	noteSearchRepo := database.NewNoteSearchAdapter(pgClient, metrics)
	analyticsRepo := database.NewSearchAnalyticsAdapter(pgClient)

	var savedSearchRepo repositories.SavedSearchRepository = database.NewSavedSearchAdapter(pgClient)
	var cacheMiddleware *middleware.CacheMiddleware
	if redisClient != nil {
		cacheProvider := cache.NewRedisAdapter(redisClient)
		savedSearchRepo = database.NewCachedSavedSearchAdapter(savedSearchRepo, cacheProvider, cfg.Cache.SavedSearchTTLSeconds)
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, cfg.Cache.AnalyticsTTLSeconds, metrics)
		log.Info().Msg("Saved searches and analytics reports wrapped with caching layer")
	}

	dateParser := services.NewNaturalDateParser(clk)
	queryParser := services.NewSearchQueryParser(dateParser)
	analyticsService := services.NewSearchAnalyticsService(analyticsRepo, clk, cfg.Search.AnalyticsDebounce)
	searchService := services.NewNoteSearchService(noteSearchRepo, queryParser, analyticsService, clk, services.NoteSearchOptions{
		SnippetLength: cfg.Search.SnippetLength,
		Limits:        limits,
		Metrics:       metrics,
	})
	savedSearchService := services.NewSavedSearchService(savedSearchRepo, searchService, clk, limits)

	router := routes.NewRouter(
		handlers.NewSearchHandler(searchService),
		handlers.NewSavedSearchHandler(savedSearchService),
		handlers.NewAnalyticsHandler(analyticsService),
		cacheMiddleware,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Str("env", cfg.Env).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
