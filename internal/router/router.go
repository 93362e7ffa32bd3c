package router

import (
	"net/http"

	"github.com/aegisd/aegis/internal/handler"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/metrics"
	"github.com/aegisd/aegis/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.Handle("GET /metrics", metrics.Handler())

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Aegis API v1","version":"0.1.0"}`))
	})

	// Public authentication routes
	mux.HandleFunc("POST /api/v1/auth/register", h.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/token/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)

	// Identity routes (require auth)
	mux.Handle("GET /api/v1/identities/me", mw.Auth(http.HandlerFunc(h.Me)))
	mux.Handle("POST /api/v1/identities/me/2fa/enroll", mw.Auth(http.HandlerFunc(h.EnrollTwoFactor)))
	mux.Handle("DELETE /api/v1/identities/me/2fa", mw.Auth(http.HandlerFunc(h.DisableTwoFactor)))

	// Admin routes (require auth plus the security:manage permission)
	guard := func(next http.Handler) http.Handler {
		return mw.Auth(mw.RequirePermission("security:manage")(next))
	}
	mux.Handle("GET /api/v1/admin/events", guard(http.HandlerFunc(h.ListSecurityEvents)))
	mux.Handle("POST /api/v1/admin/identities/{id}/unlock", guard(http.HandlerFunc(h.UnlockAccount)))
	mux.Handle("PATCH /api/v1/admin/identities/{id}/active", guard(http.HandlerFunc(h.SetAccountActive)))
	mux.Handle("GET /api/v1/admin/roles/{role}/permissions", guard(http.HandlerFunc(h.ListPermissions)))
	mux.Handle("POST /api/v1/admin/roles/{role}/permissions", guard(http.HandlerFunc(h.GrantPermission)))
	mux.Handle("DELETE /api/v1/admin/roles/{role}/permissions", guard(http.HandlerFunc(h.RevokePermission)))
	mux.Handle("POST /api/v1/admin/threats/bad-ips", guard(http.HandlerFunc(h.AddBadIP)))
	mux.Handle("DELETE /api/v1/admin/threats/bad-ips", guard(http.HandlerFunc(h.RemoveBadIP)))

	// Apply middleware stack
	var root http.Handler = mux

	// Threat detection runs before routing so every request is analyzed
	root = mw.Threat(root)

	// Request logging
	root = mw.Logger(root)

	// Request ID
	root = mw.RequestID(root)

	// Panic recovery (outermost)
	root = mw.Recover(root)

	return root
}
