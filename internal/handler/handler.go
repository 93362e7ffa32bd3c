package handler

import (
	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	rdb        *database.Redis
	log        *logger.Logger
	cfg        *config.Config
	authSvc    *service.AuthService
	authzSvc   *service.AuthzService
	monitorSvc *service.MonitorService
}

// New creates a new Handler instance
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config, authSvc *service.AuthService, authzSvc *service.AuthzService, monitorSvc *service.MonitorService) *Handler {
	return &Handler{
		rdb:        rdb,
		log:        log,
		cfg:        cfg,
		authSvc:    authSvc,
		authzSvc:   authzSvc,
		monitorSvc: monitorSvc,
	}
}
