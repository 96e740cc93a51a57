// Package rag proxies the external retrieval and metrics service.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Saldo types accepted by the metrics service.
const (
	SaldoNeto         = "neto"
	SaldoCaptaciones  = "captaciones"
	SaldoColocaciones = "colocaciones"
)

// Ask limits.
const (
	DefaultTopK = 5
	MaxTopK     = 20
)

// Summary is the metrics summary shape. Extra upstream fields are kept in the raw body.
type Summary struct {
	CaptacionesCRC  float64 `json:"captaciones_crc"`
	ColocacionesCRC float64 `json:"colocaciones_crc"`
	NetoCRC         float64 `json:"neto_crc"`
	NClientes       int     `json:"n_clientes"`
	Fallback        bool    `json:"_fallback,omitempty"`
}

// FallbackSummary is served when the metrics service cannot be reached.
func FallbackSummary() Summary {
	return Summary{
		CaptacionesCRC:  42196704.45,
		ColocacionesCRC: 10931313.22,
		NetoCRC:         31265391.23,
		NClientes:       926,
		Fallback:        true,
	}
}

// UpstreamError reports a non-2xx answer from the service.
type UpstreamError struct {
	Status int
	Path   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("rag api error: %s returned %d", e.Path, e.Status)
}

// Client calls the RAG service. Each call is attempted once.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Config holds client configuration.
type Config struct {
	BaseURL string        // Default: http://localhost:8000
	Timeout time.Duration // Default: 5s
}

// NewClient creates a RAG client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Summary fetches /metrics/summary.
func (c *Client) Summary(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/metrics/summary", nil)
}

// Saldo fetches /metrics/saldo for the given type, defaulting to neto.
func (c *Client) Saldo(ctx context.Context, tipo string) (json.RawMessage, error) {
	if tipo == "" {
		tipo = SaldoNeto
	}
	return c.get(ctx, "/metrics/saldo", url.Values{"tipo": {tipo}})
}

// Ask runs a semantic search over client cards.
func (c *Client) Ask(ctx context.Context, query string, topK int) (json.RawMessage, error) {
	return c.get(ctx, "/ask", url.Values{
		"q":     {query},
		"top_k": {strconv.Itoa(ClampTopK(topK))},
	})
}

// ClampTopK applies the default and the [1, MaxTopK] bounds.
func ClampTopK(topK int) int {
	switch {
	case topK == 0:
		return DefaultTopK
	case topK < 1:
		return 1
	case topK > MaxTopK:
		return MaxTopK
	}
	return topK
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Path: path}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("rag api returned invalid json from %s", path)
	}

	return json.RawMessage(body), nil
}
