// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/curatarr/internal/api"
	"github.com/tomtom215/curatarr/internal/auth"
	"github.com/tomtom215/curatarr/internal/backup"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/events"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/recommend"
	"github.com/tomtom215/curatarr/internal/store"
	"github.com/tomtom215/curatarr/internal/supervisor"
	"github.com/tomtom215/curatarr/internal/supervisor/services"
	ws "github.com/tomtom215/curatarr/internal/websocket"
)

const (
	eventBufferSize   = 256
	httpIdleTimeout   = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	startupQueryLimit = 5 * time.Second
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("history_source", cfg.History.Source).
		Bool("llm_enabled", cfg.LLM.Enabled).
		Bool("radarr_enabled", cfg.Radarr.Enabled).
		Bool("sonarr_enabled", cfg.Sonarr.Enabled).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Curatarr")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Curatarr stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and serves until SIGINT or SIGTERM. Deferred
// closes run after the supervisor tree has stopped every service.
//
//nolint:gocyclo // sequential setup steps
func run(cfg *config.Config) error {
	db, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	clients, err := buildClients(cfg)
	if err != nil {
		return err
	}

	bus := events.NewBus(eventBufferSize, logging.NewWatermillLogger())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	hub := ws.NewHub()
	forwarder := events.NewForwarder(bus, hub)
	logSink := store.NewLogSink(db, cfg.Store.LogBufferSize, cfg.Store.LogRetainCount)

	deps := recommend.Deps{
		History:    clients.history,
		Catalog:    clients.catalog,
		Generative: clients.generative,
		Movies:     clients.movies,
		Series:     clients.series,
		Store:      db,
		Runs:       db,
		Log:        logSink,
		Events:     bus,
	}
	engine, err := recommend.NewEngine(deps, recommend.ConfigFromApp(cfg), logging.WithComponent("engine"))
	if err != nil {
		return err
	}
	restoreLastRun(db, engine)

	var backups api.Backups
	var backupMgr *backup.Manager
	if cfg.Backup.Enabled {
		backupMgr, err = backup.NewManager(cfg.Backup, db)
		if err != nil {
			return err
		}
		backups = backupMgr
	}

	authMiddleware, jwtManager, adminManager, err := buildAuth(cfg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.HandlerDeps{
		Engine:  engine,
		Store:   db,
		Hub:     hub,
		Backups: backups,
		JWT:     jwtManager,
		Admin:   adminManager,
		Lockout: auth.NewLockoutManager(auth.DefaultLockoutConfig()),
	}, cfg)
	chiMiddleware := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	router := api.NewRouter(handler, authMiddleware, chiMiddleware)

	server := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       httpIdleTimeout,
	}
	// POST /runs holds the response open for a whole run.
	if cfg.Schedule.RunTimeout > cfg.Server.Timeout {
		server.WriteTimeout = cfg.Schedule.RunTimeout + cfg.Server.Timeout
	} else {
		server.WriteTimeout = cfg.Server.Timeout
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		return err
	}

	// Data layer
	tree.AddDataService(services.NewLogSinkService(logSink))
	tree.AddDataService(services.NewStoreGCService(db, 0, 0, logging.WithComponent("store")))
	if backupMgr != nil {
		tree.AddDataService(services.NewBackupService(backupMgr, cfg.Backup.Interval, logging.WithComponent("backup")))
		logging.Info().
			Str("dir", cfg.Backup.Dir).
			Dur("interval", cfg.Backup.Interval).
			Int("retain", cfg.Backup.Retain).
			Msg("Scheduled backups enabled")
	}

	// Engine layer
	tree.AddEngineService(services.NewWebSocketHubService(hub))
	tree.AddEngineService(services.NewEventForwarderService(forwarder))
	if cfg.Schedule.Enabled {
		tree.AddEngineService(services.NewRunSchedulerService(engine, services.RunSchedulerConfig{
			Interval:     cfg.Schedule.Interval,
			RunOnStartup: cfg.Schedule.RunOnStartup,
			RunTimeout:   cfg.Schedule.RunTimeout,
			Filters:      recommend.FiltersFromConfig(cfg.Engine.Filters),
		}, logging.WithComponent("scheduler")))
		logging.Info().
			Dur("interval", cfg.Schedule.Interval).
			Bool("run_on_startup", cfg.Schedule.RunOnStartup).
			Msg("Run scheduler enabled")
	} else {
		logging.Info().Msg("Run scheduler disabled; runs are triggered through the API")
	}

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = err
		}
		stop()
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return serveErr
}

// restoreLastRun lets /runs/status report the previous process's last run.
func restoreLastRun(db *store.Store, engine *recommend.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), startupQueryLimit)
	defer cancel()
	last, err := db.LastRun(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load last run")
		return
	}
	engine.RestoreLastRun(last)
}
