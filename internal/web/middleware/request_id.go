package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the context key holding the request id
const RequestIDKey contextKey = "request_id"

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestIDConfig configures the request id middleware
type RequestIDConfig struct {
	HeaderName string
	Generator  func() string
}

// DefaultRequestIDConfig reads and writes X-Request-ID and generates UUIDs
func DefaultRequestIDConfig() RequestIDConfig {
	return RequestIDConfig{
		HeaderName: RequestIDHeader,
		Generator:  uuid.NewString,
	}
}

// RequestID tags every request with an id, reusing the caller's when present
func RequestID() Middleware {
	return RequestIDWithConfig(DefaultRequestIDConfig())
}

// RequestIDWithConfig creates the request id middleware with custom configuration
func RequestIDWithConfig(config RequestIDConfig) Middleware {
	if config.HeaderName == "" {
		config.HeaderName = RequestIDHeader
	}
	if config.Generator == nil {
		config.Generator = uuid.NewString
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(config.HeaderName)
			if id == "" {
				id = config.Generator()
			}
			w.Header().Set(config.HeaderName, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, id)))
		})
	}
}

// GetRequestID returns the request id stored in ctx, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
