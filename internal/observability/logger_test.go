package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf, ServiceName: "aria-api"})

	ctx := ContextWithTraceID(context.Background(), "trace-123")
	logger.WithContext(ctx).WithClient("cli_00001").Info().Int("count", 3).Msg("loaded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "aria-api", line["service"])
	assert.Equal(t, "trace-123", line["trace_id"])
	assert.Equal(t, "cli_00001", line["cliente_id"])
	assert.Equal(t, float64(3), line["count"])
	assert.Equal(t, "loaded", line["message"])
}

func TestLogger_WithContextWithoutTrace(t *testing.T) {
	logger := NopLogger()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
