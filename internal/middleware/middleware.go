package middleware

import (
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/service"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	authSvc    *service.AuthService
	authzSvc   *service.AuthzService
	monitorSvc *service.MonitorService
	log        *logger.Logger
}

// New creates a new Middleware instance
func New(authSvc *service.AuthService, authzSvc *service.AuthzService, monitorSvc *service.MonitorService, log *logger.Logger) *Middleware {
	return &Middleware{
		authSvc:    authSvc,
		authzSvc:   authzSvc,
		monitorSvc: monitorSvc,
		log:        log,
	}
}
