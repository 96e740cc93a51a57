// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/proingenius/aria-banking/cmd/aria-api/handlers"
	"github.com/proingenius/aria-banking/cmd/aria-api/middleware"
	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/observability"
)

// InsightsService generates and invalidates client insights.
type InsightsService interface {
	handlers.InsightsGenerator
	handlers.CacheInvalidator
}

// AppConfig holds the settings and services the router is built from.
type AppConfig struct {
	RequestTimeout   time.Duration
	AllowedOrigins   []string
	ServiceName      string
	DatabaseDriver   string
	MaxMessageLength int
	AIConfigured     bool

	Store     *clients.Store
	Insights  InsightsService
	Assistant handlers.Assistant // nil when no LLM is configured
	RAG       handlers.RAGService
}

// DefaultAppConfig returns default configuration values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		RequestTimeout:   55 * time.Second,
		AllowedOrigins:   []string{"*"},
		ServiceName:      "aria-api",
		DatabaseDriver:   "memory",
		MaxMessageLength: 1000,
	}
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *AppConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Trace)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	healthHandler := handlers.NewHealthHandler(cfg.ServiceName, cfg.DatabaseDriver, cfg.Store)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	var invalidator handlers.CacheInvalidator
	var generator handlers.InsightsGenerator
	if cfg.Insights != nil {
		invalidator = cfg.Insights
		generator = cfg.Insights
	}

	clientsHandler := handlers.NewClientsHandler(logger, cfg.Store)
	insightsHandler := handlers.NewInsightsHandler(logger, cfg.Store, generator, cfg.AIConfigured)
	ariaHandler := handlers.NewAriaHandler(logger, cfg.Assistant, cfg.MaxMessageLength)
	metricsHandler := handlers.NewMetricsHandler(logger, cfg.RAG)
	adminHandler := handlers.NewAdminHandler(logger, cfg.Store, invalidator)

	r.Route("/api", func(r chi.Router) {
		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.With(middleware.RecoverJSON(logger, "Error loading clients")).Get("/", clientsHandler.List)
			r.With(middleware.RecoverJSON(logger, "Error loading client stats")).Get("/stats", clientsHandler.Stats)
			r.With(middleware.RecoverJSON(logger, "Error loading client")).Get("/{id}", clientsHandler.Get)
			r.With(middleware.RecoverJSON(logger, "Error generating insights")).Get("/{id}/insights", insightsHandler.Get)
		})

		// Metrics routes (proxied to the RAG service)
		r.Get("/metrics", metricsHandler.Summary)
		r.Get("/metrics/saldo", metricsHandler.Saldo)
		r.Get("/rag/ask", metricsHandler.Ask)

		// Assistant
		r.Post("/aria/ask", ariaHandler.Ask)

		r.Post("/admin/cache/clear", adminHandler.ClearCache)
	})

	return r
}
