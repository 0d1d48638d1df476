package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
// Roles carries the role codes assigned to the actor; the transition guard
// decides whether the acting role is allowed, so unknown codes fail closed
// there rather than here.
type JWTClaims struct {
	UsuarioID string
	Roles     []string
}

// Context keys for storing authenticated actor information.
type contextKeyUsuarioID struct{}
type contextKeyRoles struct{}

var (
	ContextKeyUsuarioID = contextKeyUsuarioID{}
	ContextKeyRoles     = contextKeyRoles{}
)

// GetUsuarioID retrieves the authenticated actor ID from the context.
func GetUsuarioID(ctx context.Context) string {
	usuarioID, ok := ctx.Value(ContextKeyUsuarioID).(string)
	if !ok {
		return ""
	}
	return usuarioID
}

// GetRoles retrieves the authenticated actor's role codes from the context.
func GetRoles(ctx context.Context) []string {
	roles, ok := ctx.Value(ContextKeyRoles).([]string)
	if !ok {
		return nil
	}
	return roles
}

// WithActor injects actor identity into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithActor(ctx context.Context, usuarioID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUsuarioID, usuarioID)
	return context.WithValue(ctx, ContextKeyRoles, roles)
}

// RequireAuth validates the bearer token and stores the actor identity in the
// request context. Requests without a valid token never reach the handlers.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(ctx, claims.UsuarioID, claims.Roles)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
