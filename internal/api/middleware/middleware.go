package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/momo-tracker/internal/auth"
	"github.com/dvloznov/momo-tracker/internal/logger"
)

// Response is the JSON envelope for every API reply.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Logger adds structured logging to HTTP requests. It stores a logger
// carrying the request ID in the context for handlers further down the
// chain, so it must run inside RequestID.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			reqLog := logger.WithFields(log, map[string]interface{}{
				"request_id": RequestIDFromContext(r.Context()),
			})

			// BasicAuth fills this in further down the chain
			var user string
			ctx := context.WithValue(r.Context(), userKey, &user)
			ctx = logger.WithContext(ctx, reqLog)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user", UserFromContext(ctx)).
				Msg("HTTP request")
		})
	}
}

// CORS allows any origin on every response and answers preflight requests
// with 200 and no body.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("error", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("request_id", w.Header().Get("X-Request-ID")).
						Msg("Panic recovered")

					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID adds a unique request ID to the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BasicAuth rejects requests without valid Basic credentials. Failures get
// 401, a challenge header and a JSON error, whatever the reason.
func BasicAuth(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := gate.Authenticate(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", gate.Challenge())
				WriteError(w, http.StatusUnauthorized, "Unauthorized - Valid credentials required")
				return
			}

			ctx := r.Context()
			if holder, ok := ctx.Value(userKey).(*string); ok {
				*holder = user
			}
			ctx = logger.WithContext(ctx, logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
				"user": user,
			}))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Context keys.
type contextKey string

const (
	requestIDKey contextKey = "requestID"
	userKey      contextKey = "user"
)

// RequestIDFromContext returns the request ID set by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// UserFromContext returns the authenticated username, if any.
func UserFromContext(ctx context.Context) string {
	if holder, ok := ctx.Value(userKey).(*string); ok {
		return *holder
	}
	return ""
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Error: message})
}
