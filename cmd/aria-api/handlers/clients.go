package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/observability"
)

// ClientsHandler serves the client listing, stats and detail routes.
type ClientsHandler struct {
	logger *observability.Logger
	store  *clients.Store
}

// NewClientsHandler creates a new clients handler.
func NewClientsHandler(logger *observability.Logger, store *clients.Store) *ClientsHandler {
	return &ClientsHandler{
		logger: logger,
		store:  store,
	}
}

// ClientNotFoundResponse echoes the id that was looked up.
type ClientNotFoundResponse struct {
	Error    string `json:"error"`
	ClientID string `json:"clientId"`
}

// List handles GET /api/clients.
func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := clients.PageRequest{
		Page:  atoiOrZero(q.Get("page")),
		Limit: atoiOrZero(q.Get("limit")),
	}

	result := h.store.Query(r.Context(), ParseFilter(q.Get), page)
	writeJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/clients/stats.
func (h *ClientsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats(r.Context()))
}

// Get handles GET /api/clients/{id}.
func (h *ClientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := lookupClient(w, r, h.store)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// lookupClient resolves the {id} URL parameter, answering 400 or 404 itself.
func lookupClient(w http.ResponseWriter, r *http.Request, store *clients.Store) (clients.Record, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeDomainError(w, errClientIDRequired)
		return clients.Record{}, false
	}

	rec, ok := store.GetByID(r.Context(), id)
	if !ok {
		writeDomainBody(w, errClientNotFound, ClientNotFoundResponse{Error: errClientNotFound.Message, ClientID: id})
		return clients.Record{}, false
	}
	return rec, true
}

// ParseFilter builds a listing filter from query parameters. Any non-empty
// sector other than "publico" selects the private sector; unparsable numbers
// are ignored.
func ParseFilter(get func(string) string) clients.Filter {
	var f clients.Filter

	if sector := get("sector"); sector != "" {
		public := sector == "publico"
		f.PublicSector = &public
	}
	if v, err := strconv.Atoi(get("min_edad")); err == nil {
		f.MinEdad = &v
	}
	if v, err := strconv.Atoi(get("max_edad")); err == nil {
		f.MaxEdad = &v
	}
	if v, err := strconv.ParseFloat(get("min_ingreso"), 64); err == nil {
		f.MinIngreso = &v
	}
	return f
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
