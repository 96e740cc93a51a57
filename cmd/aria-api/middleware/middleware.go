// Package middleware provides HTTP middleware for the ARIA API.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/proingenius/aria-banking/internal/observability"
)

// TraceHeader carries the request trace id.
const TraceHeader = "X-Trace-ID"

// CORS returns a CORS middleware allowing the given origins ("*" allows any).
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := ""
			for _, o := range allowedOrigins {
				if o == "*" {
					allowed = "*"
					break
				}
				if o == origin {
					allowed = origin
					break
				}
			}

			if allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TraceHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
				if allowed != "*" {
					w.Header().Add("Vary", "Origin")
				}
			}

			// Handle preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Trace assigns every request a trace id, reusing a valid incoming X-Trace-ID.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := strings.TrimSpace(r.Header.Get(TraceHeader))
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}
		w.Header().Set(TraceHeader, traceID)
		ctx := observability.ContextWithTraceID(r.Context(), traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request.
func RequestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var event *observability.LogEvent
			reqLogger := logger.WithContext(r.Context())
			switch {
			case status >= 500:
				event = reqLogger.Error()
			case status >= 400:
				event = reqLogger.Warn()
			default:
				event = reqLogger.Info()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}

// RecoverJSON turns a panic into a 500 with {"error": message}.
func RecoverJSON(logger *observability.Logger, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}
				logger.WithContext(r.Context()).Error().
					Str("panic", stringify(rec)).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Msg("Handler panicked")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case error:
		return t.Error()
	case string:
		return t
	}
	b, _ := json.Marshal(v)
	return string(b)
}
