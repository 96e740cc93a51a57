package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/proingenius/aria-banking/internal/domain"
	"github.com/proingenius/aria-banking/internal/observability"
	"github.com/proingenius/aria-banking/internal/rag"
)

// RAGService is the external metrics and semantic search service.
type RAGService interface {
	Summary(ctx context.Context) (json.RawMessage, error)
	Saldo(ctx context.Context, tipo string) (json.RawMessage, error)
	Ask(ctx context.Context, query string, topK int) (json.RawMessage, error)
}

// MetricsHandler proxies the metrics and RAG routes.
type MetricsHandler struct {
	logger *observability.Logger
	rag    RAGService
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(logger *observability.Logger, ragService RAGService) *MetricsHandler {
	return &MetricsHandler{
		logger: logger,
		rag:    ragService,
	}
}

// RAGErrorResponse carries a hint about the upstream failure.
type RAGErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint"`
}

// Summary handles GET /api/metrics. Upstream failures answer 200 with the
// fallback summary.
func (h *MetricsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	body, err := h.rag.Summary(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Warn().Err(err).Msg("Metrics summary unavailable, serving fallback")
		writeJSON(w, http.StatusOK, rag.FallbackSummary())
		return
	}
	writeRaw(w, body)
}

// Saldo handles GET /api/metrics/saldo.
func (h *MetricsHandler) Saldo(w http.ResponseWriter, r *http.Request) {
	body, err := h.rag.Saldo(r.Context(), r.URL.Query().Get("tipo"))
	if err != nil {
		derr := domain.UpstreamError("Error fetching saldo metrics", err)
		h.logger.WithContext(r.Context()).Error().Err(derr).Msg("Error fetching saldo")
		writeDomainError(w, derr)
		return
	}
	writeRaw(w, body)
}

// Ask handles GET /api/rag/ask.
func (h *MetricsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeDomainError(w, errQueryRequired)
		return
	}

	topK := rag.ClampTopK(atoiOrZero(q.Get("top_k")))

	body, err := h.rag.Ask(r.Context(), query, topK)
	if err != nil {
		derr := domain.UpstreamError("Error processing RAG query", err)
		h.logger.WithContext(r.Context()).Error().Err(derr).Int("top_k", topK).Msg("Error in RAG query")
		writeDomainBody(w, derr, RAGErrorResponse{
			Error: derr.Message,
			Hint:  ragHint(err),
		})
		return
	}
	writeRaw(w, body)
}

func ragHint(err error) string {
	var upstream *rag.UpstreamError
	if errors.As(err, &upstream) {
		return fmt.Sprintf("RAG service answered with status %d", upstream.Status)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "RAG service timed out"
	}
	return "RAG service is unreachable; check RAG_API_URL"
}

func writeRaw(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
