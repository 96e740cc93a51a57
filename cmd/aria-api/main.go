// Package main provides the ARIA API server entrypoint.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/proingenius/aria-banking/internal/aria"
	"github.com/proingenius/aria-banking/internal/cache"
	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/config"
	"github.com/proingenius/aria-banking/internal/insights"
	"github.com/proingenius/aria-banking/internal/llm"
	"github.com/proingenius/aria-banking/internal/observability"
	"github.com/proingenius/aria-banking/internal/portfolio"
	"github.com/proingenius/aria-banking/internal/rag"
)

func main() {
	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Str("llm_provider", cfg.LLM.Provider).
		Bool("llm_configured", cfg.LLMConfigured()).
		Msg("Starting ARIA API")

	ctx := context.Background()

	appCfg, cleanup := buildApp(ctx, logger, cfg)
	defer cleanup()

	// Initialize router with all handlers
	router := NewRouter(logger, appCfg)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt or error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

// buildApp wires the services. Optional backends that fail to start are
// replaced by their in-process equivalents.
func buildApp(ctx context.Context, logger *observability.Logger, cfg *config.Config) (*AppConfig, func()) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store := clients.NewStore(cfg.Data.ClientsPath, logger)
	store.LoadAll(ctx)

	insightsCache := newCache(ctx, logger, cfg.Cache)
	closers = append(closers, func() { _ = insightsCache.Close() })

	var completer llm.Completer
	if cfg.LLMConfigured() {
		c, err := llm.New(cfg.LLM)
		if err != nil {
			logger.Warn().Err(err).Msg("LLM client unavailable, AI routes disabled")
		} else {
			completer = c
		}
	}

	repo, db, driver := newRepository(ctx, logger, cfg, store)
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
	}

	appCfg := &AppConfig{
		RequestTimeout:   cfg.Server.RequestTimeout,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		ServiceName:      cfg.Observability.ServiceName,
		DatabaseDriver:   driver,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		AIConfigured:     completer != nil,
		Store:            store,
		Insights: insights.NewGenerator(insights.GeneratorConfig{
			Completer: completer,
			Cache:     insightsCache,
			CacheTTL:  cfg.Cache.TTL,
			Logger:    logger,
		}),
		RAG: rag.NewClient(rag.Config{
			BaseURL: cfg.RAG.BaseURL,
			Timeout: cfg.RAG.Timeout,
		}),
	}
	if completer != nil {
		appCfg.Assistant = aria.NewAssistant(completer, repo, logger)
	}

	return appCfg, cleanup
}

func newCache(ctx context.Context, logger *observability.Logger, cfg config.CacheConfig) cache.Client {
	if cfg.Driver == "redis" {
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   "aria:",
		})
		if err == nil {
			return rc
		}
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using memory cache")
	}
	return cache.NewMemoryClient(cfg.MaxEntries, time.Minute)
}

// newRepository opens the configured portfolio database and reports the driver
// actually in use. The returned *sql.DB is nil for the in-memory repository.
func newRepository(ctx context.Context, logger *observability.Logger, cfg *config.Config, store *clients.Store) (portfolio.Repository, *sql.DB, string) {
	if cfg.Database.Driver == config.DriverMemory {
		return portfolio.NewMemoryRepository(store), nil, config.DriverMemory
	}

	db, err := portfolio.Open(ctx, cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Database.Driver).Msg("Database unavailable, using in-memory portfolio")
		return portfolio.NewMemoryRepository(store), nil, config.DriverMemory
	}

	applied, err := portfolio.NewMigrationManager(db, cfg.Database.Driver).Migrate(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Migrations failed, using in-memory portfolio")
		_ = db.Close()
		return portfolio.NewMemoryRepository(store), nil, config.DriverMemory
	}
	logger.Info().Int("applied", applied).Str("driver", cfg.Database.Driver).Msg("Portfolio database ready")

	return portfolio.NewSQLRepository(db), db, cfg.Database.Driver
}
