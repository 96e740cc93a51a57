package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/proingenius/aria-banking/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "gpt-4o"})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hola"},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Len(t, got.Messages, 2)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	assert.Equal(t, 1000, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestClient_Complete_PlainTextOmitsResponseFormat(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":""}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotContains(t, raw, "response_format")
	assert.NotContains(t, raw, "max_tokens")
}

func TestClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx",
			status: http.StatusInternalServerError,
			body:   `{"error":"boom"}`,
			wantErr: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `not json`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "unmarshal response")
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoChoices)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), Request{})
			require.Error(t, err)
			tt.wantErr(t, err)
			assert.Equal(t, 1, calls, "no retries")
		})
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestNew_Providers(t *testing.T) {
	cfg := config.DefaultConfig().LLM

	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.APIKey = "k"
	c, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Client{}, c)

	anth := cfg
	anth.Provider = config.ProviderAnthropic
	anth.APIKey = ""
	_, err = New(anth)
	assert.ErrorIs(t, err, ErrNotConfigured)

	bad := cfg
	bad.Provider = "bogus"
	_, err = New(bad)
	assert.Error(t, err)
}

func TestMessageType(t *testing.T) {
	assert.Equal(t, "system", string(messageType(RoleSystem)))
	assert.Equal(t, "ai", string(messageType(RoleAssistant)))
	assert.Equal(t, "human", string(messageType(RoleUser)))
}
