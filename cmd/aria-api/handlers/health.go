package handlers

import (
	"context"
	"net/http"

	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/domain"
	"github.com/proingenius/aria-banking/internal/observability"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	service string
	driver  string
	store   *clients.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(service, driver string, store *clients.Store) *HealthHandler {
	return &HealthHandler{service: service, driver: driver, store: store}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
	})
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"clients":  h.store.Count(r.Context()),
		"skipped":  h.store.Skipped(),
		"database": h.driver,
	})
}

// CacheInvalidator drops cached derived data.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// AdminHandler serves operational routes.
type AdminHandler struct {
	logger      *observability.Logger
	store       *clients.Store
	invalidator CacheInvalidator
}

// NewAdminHandler creates a new admin handler. invalidator may be nil.
func NewAdminHandler(logger *observability.Logger, store *clients.Store, invalidator CacheInvalidator) *AdminHandler {
	return &AdminHandler{logger: logger, store: store, invalidator: invalidator}
}

// ClearCache handles POST /api/admin/cache/clear. The client dataset is read
// again on the next request.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.store.ClearCache()

	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(r.Context()); err != nil {
			derr := domain.IOError("Error clearing insights cache", err)
			h.logger.WithContext(r.Context()).Error().Err(derr).Msg("Failed to invalidate insights cache")
			writeDomainError(w, derr)
			return
		}
	}

	h.logger.WithContext(r.Context()).Info().Msg("Caches cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
