package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proingenius/aria-banking/internal/aria"
	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/domain"
	"github.com/proingenius/aria-banking/internal/insights"
	"github.com/proingenius/aria-banking/internal/observability"
	"github.com/proingenius/aria-banking/internal/rag"
)

func fixtureStore(n int) *clients.Store {
	records := make([]clients.Record, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, clients.Record{
			ClienteID: fmt.Sprintf("cli_%05d", i),
			Perfil: &clients.Profile{
				Sexo:              clients.SexFemale,
				Edad:              20 + i,
				Ingreso:           float64(1000 * i),
				AntiguedadLaboral: float64(i),
				SectorPublicoFlag: i % 2,
			},
			Resumen: fmt.Sprintf("Cliente %d", i),
		})
	}
	return clients.NewMemoryStore(records, observability.NopLogger())
}

// withID routes the request through a chi context carrying {id}.
func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, f clients.Filter)
	}{
		{
			name:  "empty",
			query: "",
			check: func(t *testing.T, f clients.Filter) {
				assert.Equal(t, clients.Filter{}, f)
			},
		},
		{
			name:  "publico",
			query: "sector=publico",
			check: func(t *testing.T, f clients.Filter) {
				require.NotNil(t, f.PublicSector)
				assert.True(t, *f.PublicSector)
			},
		},
		{
			name:  "anything else is private",
			query: "sector=otro",
			check: func(t *testing.T, f clients.Filter) {
				require.NotNil(t, f.PublicSector)
				assert.False(t, *f.PublicSector)
			},
		},
		{
			name:  "numeric filters",
			query: "min_edad=30&max_edad=40&min_ingreso=2500.5",
			check: func(t *testing.T, f clients.Filter) {
				require.NotNil(t, f.MinEdad)
				require.NotNil(t, f.MaxEdad)
				require.NotNil(t, f.MinIngreso)
				assert.Equal(t, 30, *f.MinEdad)
				assert.Equal(t, 40, *f.MaxEdad)
				assert.Equal(t, 2500.5, *f.MinIngreso)
			},
		},
		{
			name:  "unparsable numbers are ignored",
			query: "min_edad=abc&max_edad=&min_ingreso=x",
			check: func(t *testing.T, f clients.Filter) {
				assert.Nil(t, f.MinEdad)
				assert.Nil(t, f.MaxEdad)
				assert.Nil(t, f.MinIngreso)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			tt.check(t, ParseFilter(q.Get))
		})
	}
}

func TestClientsHandler_List(t *testing.T) {
	h := NewClientsHandler(observability.NopLogger(), fixtureStore(25))

	tests := []struct {
		name      string
		query     string
		wantPage  float64
		wantLimit float64
		wantTotal float64
		wantLen   int
		wantFirst string
	}{
		{"defaults", "", 1, 50, 25, 25, "cli_00001"},
		{"second page", "page=2&limit=10", 2, 10, 25, 10, "cli_00011"},
		{"past the end", "page=9&limit=10", 9, 10, 25, 0, ""},
		{"limit clamped", "limit=500", 1, 100, 25, 25, "cli_00001"},
		{"garbage page", "page=abc&limit=xyz", 1, 50, 25, 25, "cli_00001"},
		{"public sector", "sector=publico", 1, 50, 13, 13, "cli_00001"},
		{"age window", "min_edad=30&max_edad=32", 1, 50, 3, 3, "cli_00010"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/clients?"+tt.query, nil)
			rec := httptest.NewRecorder()

			h.List(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			body := decode(t, rec)

			list, ok := body["clients"].([]interface{})
			require.True(t, ok, "clients must be an array")
			assert.Len(t, list, tt.wantLen)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, list[0].(map[string]interface{})["cliente_id"])
			}

			p := body["pagination"].(map[string]interface{})
			assert.Equal(t, tt.wantPage, p["page"])
			assert.Equal(t, tt.wantLimit, p["limit"])
			assert.Equal(t, tt.wantTotal, p["total"])
		})
	}
}

func TestClientsHandler_Get(t *testing.T) {
	h := NewClientsHandler(observability.NopLogger(), fixtureStore(3))

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/clients/cli_00002", nil), "cli_00002"))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "cli_00002", body["cliente_id"])
		assert.Equal(t, "Cliente 2", body["resumen"])
	})

	t.Run("not found echoes id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/clients/cli_00042", nil), "cli_00042"))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Client not found","clientId":"cli_00042"}`, rec.Body.String())
	})

	t.Run("blank id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/clients/%20", nil), " "))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Client id is required"}`, rec.Body.String())
	})
}

func TestClientsHandler_Stats(t *testing.T) {
	h := NewClientsHandler(observability.NopLogger(), fixtureStore(4))

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/clients/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(4), body["total"])
	assert.Equal(t, float64(2), body["sectorPublico"])
	assert.Equal(t, float64(2), body["sectorPrivado"])
	assert.Equal(t, float64(4), body["mujeres"])
}

type fakeGenerator struct {
	calls  int
	source insights.Source
}

func (f *fakeGenerator) Generate(_ context.Context, rec clients.Record) (insights.Insights, insights.Source) {
	f.calls++
	return insights.Fallback(rec), f.source
}

func TestInsightsHandler(t *testing.T) {
	store := fixtureStore(3)

	t.Run("not configured", func(t *testing.T) {
		gen := &fakeGenerator{source: insights.SourceLLM}
		h := NewInsightsHandler(observability.NopLogger(), store, gen, false)

		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "cli_00001"))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"error":"AI service not configured"}`, rec.Body.String())
		assert.Zero(t, gen.calls)
	})

	t.Run("unknown client", func(t *testing.T) {
		gen := &fakeGenerator{source: insights.SourceLLM}
		h := NewInsightsHandler(observability.NopLogger(), store, gen, true)

		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "cli_09999"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, gen.calls)
	})

	t.Run("payload", func(t *testing.T) {
		gen := &fakeGenerator{source: insights.SourceFallback}
		h := NewInsightsHandler(observability.NopLogger(), store, gen, true)

		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "cli_00002"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "fallback", rec.Header().Get(SourceHeader))

		body := decode(t, rec)
		assert.Equal(t, "cli_00002", body["cliente_id"])
		assert.Equal(t, "Cliente 2", body["resumen"])
		assert.Contains(t, body, "perfil")

		in := body["insights"].(map[string]interface{})
		assert.NotEmpty(t, in["snapshot_ejecutivo"])
		assert.Contains(t, in, "analisis_comportamiento")
		assert.Contains(t, in, "oportunidades")
		assert.Contains(t, in, "alertas_riesgos")
		assert.Equal(t, 1, gen.calls)
	})
}

type fakeAssistant struct {
	calls    int
	question string
}

func (f *fakeAssistant) Ask(_ context.Context, question string) aria.Answer {
	f.calls++
	f.question = question
	return aria.Answer{
		Message:   "Tienes 25 clientes.",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Intent:    aria.IntentGeneralStats,
	}
}

func TestAriaHandler_Ask(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		assistant  bool
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{"invalid json", `{`, true, http.StatusBadRequest, `{"error":"Message is required"}`, 0},
		{"missing message", `{}`, true, http.StatusBadRequest, `{"error":"Message is required"}`, 0},
		{"blank message", `{"message":"   "}`, true, http.StatusBadRequest, `{"error":"Message is required"}`, 0},
		{"too long", fmt.Sprintf(`{"message":%q}`, strings.Repeat("a", 1001)), true, http.StatusBadRequest, `{"error":"Message too long","maxLength":1000}`, 0},
		{"not configured", `{"message":"hola"}`, false, http.StatusServiceUnavailable, `{"error":"AI service not configured"}`, 0},
		{"answered", `{"message":"¿Cuántos clientes tengo?"}`, true, http.StatusOK, `{"message":"Tienes 25 clientes.","timestamp":"2025-01-02T03:04:05Z"}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAssistant{}
			var assistant Assistant
			if tt.assistant {
				assistant = fake
			}
			h := NewAriaHandler(observability.NopLogger(), assistant, 1000)

			rec := httptest.NewRecorder()
			h.Ask(rec, httptest.NewRequest(http.MethodPost, "/api/aria/ask", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantCalls, fake.calls)
		})
	}
}

func TestAriaHandler_AskRejectsOversizedBody(t *testing.T) {
	fake := &fakeAssistant{}
	h := NewAriaHandler(observability.NopLogger(), fake, 1000)

	body := `{"message":"` + strings.Repeat("a", maxAskBodyBytes+1) + `"}`
	rec := httptest.NewRecorder()
	h.Ask(rec, httptest.NewRequest(http.MethodPost, "/api/aria/ask", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Message is required"}`, rec.Body.String())
	assert.Zero(t, fake.calls)
}

func TestAriaHandler_AskCountsRunes(t *testing.T) {
	fake := &fakeAssistant{}
	h := NewAriaHandler(observability.NopLogger(), fake, 1000)

	// 1000 two-byte runes fit even though the byte length is 2000.
	msg := strings.Repeat("ñ", 1000)
	body, err := json.Marshal(AskRequest{Message: msg})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Ask(rec, httptest.NewRequest(http.MethodPost, "/api/aria/ask", strings.NewReader(string(body))))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msg, fake.question)
}

type fakeRAG struct {
	summary json.RawMessage
	saldo   json.RawMessage
	answer  json.RawMessage
	err     error

	lastTipo string
	lastTopK int
}

func (f *fakeRAG) Summary(context.Context) (json.RawMessage, error) { return f.summary, f.err }

func (f *fakeRAG) Saldo(_ context.Context, tipo string) (json.RawMessage, error) {
	f.lastTipo = tipo
	return f.saldo, f.err
}

func (f *fakeRAG) Ask(_ context.Context, _ string, topK int) (json.RawMessage, error) {
	f.lastTopK = topK
	return f.answer, f.err
}

func TestMetricsHandler_Summary(t *testing.T) {
	t.Run("proxied", func(t *testing.T) {
		h := NewMetricsHandler(observability.NopLogger(), &fakeRAG{summary: json.RawMessage(`{"n_clientes":10}`)})

		rec := httptest.NewRecorder()
		h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"n_clientes":10}`, rec.Body.String())
	})

	t.Run("fallback on failure", func(t *testing.T) {
		h := NewMetricsHandler(observability.NopLogger(), &fakeRAG{err: &rag.UpstreamError{Status: 502, Path: "/metrics/summary"}})

		rec := httptest.NewRecorder()
		h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"captaciones_crc":42196704.45,"colocaciones_crc":10931313.22,"neto_crc":31265391.23,"n_clientes":926,"_fallback":true}`, rec.Body.String())
	})
}

func TestMetricsHandler_Saldo(t *testing.T) {
	t.Run("proxied", func(t *testing.T) {
		fake := &fakeRAG{saldo: json.RawMessage(`{"tipo":"captaciones","saldo":1}`)}
		h := NewMetricsHandler(observability.NopLogger(), fake)

		rec := httptest.NewRecorder()
		h.Saldo(rec, httptest.NewRequest(http.MethodGet, "/api/metrics/saldo?tipo=captaciones", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "captaciones", fake.lastTipo)
	})

	t.Run("failure", func(t *testing.T) {
		h := NewMetricsHandler(observability.NopLogger(), &fakeRAG{err: errors.New("connection refused")})

		rec := httptest.NewRecorder()
		h.Saldo(rec, httptest.NewRequest(http.MethodGet, "/api/metrics/saldo", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Error fetching saldo metrics"}`, rec.Body.String())
	})
}

// clientTimeoutError mimics the error http.Client reports when its Timeout
// elapses.
type clientTimeoutError struct{}

func (clientTimeoutError) Error() string   { return "Client.Timeout exceeded while awaiting headers" }
func (clientTimeoutError) Timeout() bool   { return true }
func (clientTimeoutError) Temporary() bool { return true }

func TestMetricsHandler_Ask(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantTopK   int
		wantHint   string
	}{
		{"missing q", "", nil, http.StatusBadRequest, 0, ""},
		{"blank q", "q=%20%20", nil, http.StatusBadRequest, 0, ""},
		{"default top_k", "q=clientes", nil, http.StatusOK, 5, ""},
		{"top_k clamped high", "q=clientes&top_k=99", nil, http.StatusOK, 20, ""},
		{"top_k clamped low", "q=clientes&top_k=-3", nil, http.StatusOK, 1, ""},
		{"upstream status", "q=clientes", &rag.UpstreamError{Status: 503, Path: "/ask"}, http.StatusInternalServerError, 5, "RAG service answered with status 503"},
		{"timeout", "q=clientes", fmt.Errorf("get /ask: %w", context.DeadlineExceeded), http.StatusInternalServerError, 5, "RAG service timed out"},
		{"client timeout", "q=clientes", &url.Error{Op: "Get", URL: "http://rag.local/ask", Err: clientTimeoutError{}}, http.StatusInternalServerError, 5, "RAG service timed out"},
		{"unreachable", "q=clientes", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, 5, "RAG service is unreachable; check RAG_API_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRAG{answer: json.RawMessage(`{"answer":"ok"}`), err: tt.err}
			h := NewMetricsHandler(observability.NopLogger(), fake)

			rec := httptest.NewRecorder()
			h.Ask(rec, httptest.NewRequest(http.MethodGet, "/api/rag/ask?"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantTopK, fake.lastTopK)

			switch tt.wantStatus {
			case http.StatusBadRequest:
				assert.JSONEq(t, `{"error":"Query parameter \"q\" is required"}`, rec.Body.String())
			case http.StatusOK:
				assert.JSONEq(t, `{"answer":"ok"}`, rec.Body.String())
			default:
				body := decode(t, rec)
				assert.Equal(t, "Error processing RAG query", body["error"])
				assert.Equal(t, tt.wantHint, body["hint"])
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("aria-api", "memory", fixtureStore(7))

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"aria-api"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","clients":7,"skipped":0,"database":"memory"}`, rec.Body.String())
}

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return f.err
}

func TestAdminHandler_ClearCache(t *testing.T) {
	t.Run("clears store and insights", func(t *testing.T) {
		store := fixtureStore(2)
		store.LoadAll(context.Background())
		require.True(t, store.Loaded())

		inv := &fakeInvalidator{}
		h := NewAdminHandler(observability.NopLogger(), store, inv)

		rec := httptest.NewRecorder()
		h.ClearCache(rec, httptest.NewRequest(http.MethodPost, "/api/admin/cache/clear", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"cleared"}`, rec.Body.String())
		assert.False(t, store.Loaded())
		assert.Equal(t, 1, inv.calls)
	})

	t.Run("invalidation failure", func(t *testing.T) {
		h := NewAdminHandler(observability.NopLogger(), fixtureStore(1), &fakeInvalidator{err: errors.New("redis down")})

		rec := httptest.NewRecorder()
		h.ClearCache(rec, httptest.NewRequest(http.MethodPost, "/api/admin/cache/clear", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		err  *domain.Error
		kind domain.ErrorKind
		want int
	}{
		{errAINotConfigured, domain.KindConfig, http.StatusServiceUnavailable},
		{errClientIDRequired, domain.KindValidation, http.StatusBadRequest},
		{errClientNotFound, domain.KindNotFound, http.StatusNotFound},
		{errMessageRequired, domain.KindValidation, http.StatusBadRequest},
		{errMessageTooLong, domain.KindValidation, http.StatusBadRequest},
		{errQueryRequired, domain.KindValidation, http.StatusBadRequest},
		{domain.UpstreamError("Error fetching saldo metrics", errors.New("refused")), domain.KindUpstream, http.StatusInternalServerError},
		{domain.IOError("Error clearing insights cache", errors.New("redis down")), domain.KindIO, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			assert.Equal(t, tt.kind, domain.KindOf(tt.err))

			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.err.Message), rec.Body.String())
		})
	}
}
