// Package main is the entry point for the tradescope trade-journal
// analytics service. It ingests CSV trade exports, keeps the normalized
// set as the current session (persisted to a local SQLite journal), and
// serves the aggregation reports as JSON for the dashboard frontend.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tradescope/internal/clients/marketcontext"
	"tradescope/internal/config"
	"tradescope/internal/database"
	"tradescope/internal/events"
	"tradescope/internal/modules/analytics"
	"tradescope/internal/modules/importer"
	"tradescope/internal/modules/session"
	"tradescope/internal/modules/summary"
	"tradescope/internal/modules/symbols"
	"tradescope/internal/modules/timeline"
	"tradescope/internal/scheduler"
	"tradescope/internal/server"
	"tradescope/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting tradescope")

	// Journal database: a derived cache of the user's last import, so a
	// restart does not require re-uploading the CSV.
	journalDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "journal.db"),
		Name: "journal",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open journal database")
	}
	defer journalDB.Close()

	if err := session.InitSchema(journalDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize journal schema")
	}

	// Wire services.
	sessionManager := session.NewManager()
	sessionRepo := session.NewRepository(journalDB.Conn(), log)
	sessionCache := session.NewCache(cfg.DataDir, log)
	eventManager := events.NewManager(log)

	importService := importer.NewService(sessionManager, sessionRepo, sessionCache, eventManager, log)

	// Restore the last imported session, snapshot first, journal fallback.
	if sess, err := importService.Restore(); err != nil {
		log.Warn().Err(err).Msg("Failed to restore previous session")
	} else if sess != nil {
		log.Info().
			Str("session_id", sess.ID).
			Int("trades", len(sess.Trades)).
			Msg("Previous session restored")
	}

	// Market context client is optional: without credentials the context
	// analysis endpoint reports itself unavailable.
	var contextFetcher timeline.ContextFetcher
	if cfg.Context.BaseURL != "" {
		contextClient := marketcontext.NewClient(cfg.Context.BaseURL, log)
		if cfg.Context.Username != "" && cfg.Context.Password != "" {
			loginCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := contextClient.Login(loginCtx, cfg.Context.Username, cfg.Context.Password); err != nil {
				log.Warn().Err(err).Msg("Market context login failed, context analysis disabled until re-login")
			}
			cancel()
		}
		contextFetcher = contextClient
	}

	srv := server.New(server.Config{
		Log:              log,
		Config:           cfg,
		JournalDB:        journalDB,
		SessionManager:   sessionManager,
		EventManager:     eventManager,
		ImportService:    importService,
		AnalyticsService: analytics.NewService(cfg.Analytics, cfg.RollingWindow, log),
		SummaryService:   summary.NewService(log),
		SymbolsService:   symbols.NewService(log),
		TimelineService:  timeline.NewService(contextFetcher, log),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Nightly journal maintenance.
	sched := scheduler.New(log)
	if err := sched.AddJob("30 3 * * *", scheduler.NewJournalMaintenanceJob(journalDB, log)); err != nil {
		log.Error().Err(err).Msg("Failed to register journal maintenance job")
	}
	sched.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
