package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockboard/internal/clients/quotes"
	"stockboard/internal/config"
	"stockboard/internal/database"
	"stockboard/internal/events"
	"stockboard/internal/modules/holdings"
	"stockboard/internal/modules/holdings/jobs"
	"stockboard/internal/scheduler"
	"stockboard/internal/server"
	"stockboard/pkg/logger"
)

func main() {
	// Bootstrap logger until configuration is loaded
	log := logger.New(logger.Config{Level: "info", Pretty: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Stockboard")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := holdings.InitSchema(db.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// Wire the holdings module
	eventMgr := events.NewManager(log)
	quoteClient := quotes.NewClient(cfg.QuoteBaseURL, log)
	book := holdings.NewBook(log)
	repo := holdings.NewRepository(db.Conn(), log)
	service := holdings.NewService(book, quoteClient, repo, eventMgr, cfg.SessionID, log)
	handler := holdings.NewHandler(service, log)

	// Restore last session and pull fresh quotes in the background so a
	// cold start never blocks on the provider.
	if err := service.RestoreSession(); err != nil {
		log.Warn().Err(err).Msg("Failed to restore session")
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := service.RefreshAll(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial refresh failed")
		}
	}()

	// Schedule periodic quote refresh
	sched := scheduler.New(log)
	refreshJob := jobs.NewRefreshJob(service, 2*time.Minute, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		DB:       db,
		Config:   cfg,
		Holdings: handler,
		DevMode:  cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
