package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/hbnb-api/internal/api"
	"github.com/isdelr/hbnb-api/internal/auth"
	"github.com/isdelr/hbnb-api/internal/config"
	"github.com/isdelr/hbnb-api/internal/logger"
	"github.com/isdelr/hbnb-api/internal/monitoring"
	"github.com/isdelr/hbnb-api/internal/services"
	"github.com/isdelr/hbnb-api/internal/storage"
	"github.com/isdelr/hbnb-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel)

	// Set up storage
	store, err := storage.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.StorageType).Msg("Failed to initialize storage")
	}
	if s, ok := store.(storage.Shutdowner); ok {
		defer func() {
			if err := s.Shutdown(); err != nil {
				log.Error().Err(err).Msg("Failed to release storage")
			}
		}()
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Set up services
	entityService := services.NewEntityService(store, hub)
	authService := services.NewAuthService(store)
	snapshotService := services.NewSnapshotService(store, cfg.SnapshotDir)

	var issuer *auth.Issuer
	if cfg.JWTSecret != "" {
		if issuer, err = auth.NewIssuer(cfg.JWTSecret); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize token issuer")
		}
	} else {
		log.Warn().Msg("JWT_SECRET not set, mutating routes are unauthenticated")
	}

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(func() (monitoring.StatsSource, func()) {
		return entityService.Detached()
	}, hub, cfg.StatsInterval)
	go statUpdater.Run()
	defer statUpdater.Stop()

	// Set up and run the background scheduler
	if cfg.SnapshotCron != "" {
		scheduler, err := monitoring.NewScheduler(cfg.SnapshotCron, snapshotService, hub)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize snapshot scheduler")
		}
		go scheduler.Run()
		defer scheduler.Stop()
	}

	// Set up router
	router := api.NewRouter(hub, api.Services{
		Entities:  entityService,
		Auth:      authService,
		Snapshots: snapshotService,
	}, api.Options{
		Issuer:      issuer,
		CORSOrigins: cfg.CORSOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.StorageType).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
