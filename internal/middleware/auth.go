package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/service"
)

// Context keys for authenticated identity data
const (
	IdentityIDKey contextKey = "identity_id"
	UsernameKey   contextKey = "username"
	RoleKey       contextKey = "role"
)

// Auth validates the bearer token on the request and adds the
// authenticated identity to the context
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tokenString string

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			http.Error(w, `{"error":"unauthorized","message":"Authentication required"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateToken(r.Context(), tokenString)
		if err != nil {
			m.log.Debug().Err(err).Msg("token validation failed")
			http.Error(w, `{"error":"token_invalid","message":"The access token is invalid or expired"}`, http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, IdentityIDKey, claims.Subject)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission guards a route behind an authorization check against
// the authenticated identity's role. Must run after Auth.
func (m *Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(RoleKey).(model.Role)
			if !ok {
				http.Error(w, `{"error":"unauthorized","message":"Authentication required"}`, http.StatusUnauthorized)
				return
			}

			if err := m.authzSvc.Require(r.Context(), role, permission); err != nil {
				if errors.Is(err, service.ErrInsufficientPermission) {
					http.Error(w, `{"error":"forbidden","message":"Insufficient permissions"}`, http.StatusForbidden)
					return
				}
				m.log.Error().Err(err).Str("role", string(role)).Str("permission", permission).Msg("permission check failed")
				http.Error(w, `{"error":"internal_server_error","message":"An unexpected error occurred"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentityID retrieves the authenticated identity ID from context
func GetIdentityID(ctx context.Context) string {
	if id, ok := ctx.Value(IdentityIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole retrieves the authenticated role from context
func GetRole(ctx context.Context) (model.Role, bool) {
	role, ok := ctx.Value(RoleKey).(model.Role)
	return role, ok
}
