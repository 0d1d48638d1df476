package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKeyRequestID struct{}
type contextKeyClientIP struct{}
type contextKeyUserAgent struct{}

var ContextKeyRequestID = contextKeyRequestID{}

// RequestID assigns each request a correlation ID, honoring an inbound
// X-Request-ID so gateway retries stay traceable end to end.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	if !ok {
		return ""
	}
	return requestID
}

// Recovery converts handler panics into 500 responses instead of dropping the
// connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "handler panic",
						"panic", rec,
						"path", r.URL.Path,
						"request_id", GetRequestID(r.Context()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logger emits one structured line per request.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", GetRequestID(r.Context()),
			)
		})
	}
}

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context. The audit trail records both as transition
// origin. This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, contextKeyClientIP{}, ClientIPFromRequest(r))
		ctx = context.WithValue(ctx, contextKeyUserAgent{}, r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// GetUserAgent retrieves the User-Agent from the context.
func GetUserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(contextKeyUserAgent{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	ctx = context.WithValue(ctx, contextKeyUserAgent{}, userAgent)
	return ctx
}

// ClientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first entry is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
