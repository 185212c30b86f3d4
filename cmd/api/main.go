package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wisatabooks/ledger/internal/api"
	"github.com/wisatabooks/ledger/internal/api/service"
	"github.com/wisatabooks/ledger/internal/config"
	datamongo "github.com/wisatabooks/ledger/internal/data/mongo"
	"github.com/wisatabooks/ledger/internal/data/postgres"
	"github.com/wisatabooks/ledger/internal/logger"
	"github.com/wisatabooks/ledger/internal/platform/persistence"
	"github.com/wisatabooks/ledger/internal/posting"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize PostgreSQL with app context; migrations run on startup
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize MongoDB; the API serves archived history from it
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	journalRepo := postgres.NewJournalRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	archiveRepo := datamongo.NewArchiveRepository(log, mongoDB.Database())

	// Initialize the posting engine and services
	engine := posting.NewEngine(postgresDB, accountRepo, journalRepo, ledgerRepo, outboxRepo, posting.Config{
		Timeout:          cfg.Posting.Timeout,
		RecomputeTimeout: cfg.Posting.RecomputeTimeout,
		MaxAttempts:      cfg.Posting.MaxAttempts,
	}, log)

	accountService := service.NewAccountService(accountRepo, journalRepo, ledgerRepo)
	reportService := service.NewReportService(accountRepo)
	archiveService := service.NewArchiveService(archiveRepo, accountRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, api.Services{
		Accounts: accountService,
		Posting:  engine,
		Reports:  reportService,
		Archive:  archiveService,
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
