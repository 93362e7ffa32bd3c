package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegisd/aegis/internal/auth"
	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/crypto"
	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/handler"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/metrics"
	"github.com/aegisd/aegis/internal/middleware"
	"github.com/aegisd/aegis/internal/notifier"
	"github.com/aegisd/aegis/internal/repository"
	"github.com/aegisd/aegis/internal/router"
	"github.com/aegisd/aegis/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting Aegis server")

	// Register Prometheus collectors
	metrics.Init()

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Initialize repositories
	identityRepo := repository.NewIdentityRepository(rdb)
	sessionRepo := repository.NewSessionRepository(rdb)
	eventRepo := repository.NewEventRepository(rdb, cfg.Security.Events.MaxEvents)
	permRepo := repository.NewPermissionRepository(rdb)
	windowRepo := repository.NewWindowRepository(rdb)

	// Initialize token service
	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token service")
	}
	log.Info().Msg("token service initialized")

	// Initialize cipher (symmetric + asymmetric encryption)
	cipher, err := crypto.NewCipher(cfg.Security.Encryption)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cipher")
	}
	log.Info().Msg("cipher initialized")

	// Alert notifier for high and critical events
	alerts := notifier.NewLogNotifier(log)

	// Initialize services
	authzSvc := service.NewAuthzService(permRepo, log)
	if err := authzSvc.Seed(context.Background(), config.PermissionSeed()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed role permissions")
	}
	log.Info().Msg("role permissions seeded")

	authSvc := service.NewAuthService(identityRepo, sessionRepo, eventRepo, tokenSvc, cipher, alerts, cfg, log)
	monitorSvc := service.NewMonitorService(windowRepo, eventRepo, alerts, cfg.Security.Threat, log)

	// Initialize handlers and middleware
	h := handler.New(rdb, log, cfg, authSvc, authzSvc, monitorSvc)
	mw := middleware.New(authSvc, authzSvc, monitorSvc, log)

	// Set up router
	r := router.New(h, mw, log)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
