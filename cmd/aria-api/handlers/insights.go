package handlers

import (
	"context"
	"net/http"

	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/insights"
	"github.com/proingenius/aria-banking/internal/observability"
)

// SourceHeader reports where an insights payload came from.
const SourceHeader = "X-Insights-Source"

// InsightsGenerator produces insights for one client.
type InsightsGenerator interface {
	Generate(ctx context.Context, rec clients.Record) (insights.Insights, insights.Source)
}

// InsightsHandler serves GET /api/clients/{id}/insights.
type InsightsHandler struct {
	logger    *observability.Logger
	store     *clients.Store
	generator InsightsGenerator
	enabled   bool
}

// NewInsightsHandler creates a new insights handler. When enabled is false
// every request answers 503.
func NewInsightsHandler(logger *observability.Logger, store *clients.Store, generator InsightsGenerator, enabled bool) *InsightsHandler {
	return &InsightsHandler{
		logger:    logger,
		store:     store,
		generator: generator,
		enabled:   enabled,
	}
}

// InsightsResponse is the insights payload.
type InsightsResponse struct {
	ClienteID string            `json:"cliente_id"`
	Perfil    *clients.Profile  `json:"perfil"`
	Resumen   string            `json:"resumen"`
	Insights  insights.Insights `json:"insights"`
}

// Get handles GET /api/clients/{id}/insights.
func (h *InsightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.enabled || h.generator == nil {
		writeDomainError(w, errAINotConfigured)
		return
	}

	rec, ok := lookupClient(w, r, h.store)
	if !ok {
		return
	}

	in, source := h.generator.Generate(r.Context(), rec)
	h.logger.WithContext(r.Context()).Debug().
		Str("client_id", rec.ClienteID).
		Str("source", string(source)).
		Msg("Insights generated")

	w.Header().Set(SourceHeader, string(source))
	writeJSON(w, http.StatusOK, InsightsResponse{
		ClienteID: rec.ClienteID,
		Perfil:    rec.Perfil,
		Resumen:   rec.Resumen,
		Insights:  in,
	})
}
