package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wisatabooks/ledger/internal/archiver"
	"github.com/wisatabooks/ledger/internal/config"
	datamongo "github.com/wisatabooks/ledger/internal/data/mongo"
	"github.com/wisatabooks/ledger/internal/data/postgres"
	"github.com/wisatabooks/ledger/internal/logger"
	"github.com/wisatabooks/ledger/internal/platform/messaging/consumers"
	"github.com/wisatabooks/ledger/internal/platform/messaging/producers"
	"github.com/wisatabooks/ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("archiver")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers
	eventProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}

	// A nil *DLQProducer must stay a nil interface inside the service
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	archiveRepo := datamongo.NewArchiveRepository(log, mongoDB.Database())
	if err := archiveRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create archive indexes", "error", err)
		os.Exit(1)
	}

	// Initialize archive service with its worker pool
	archiveService, err := archiver.NewService(archiveRepo, dlq, archiver.Config{
		WorkerPoolSize: cfg.WorkerPool.Size,
	}, log)
	if err != nil {
		log.Error("Failed to initialize archive service", "error", err)
		os.Exit(1)
	}

	// Start the outbox poller
	poller := archiver.NewPoller(&cfg.Outbox, outboxRepo, eventProducer, log)
	go poller.Start(appCtx)

	// Start the committed-rows consumer
	consumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	if err := consumer.Subscribe(appCtx, cfg.Kafka.LedgerEventsTopic, cfg.Kafka.ConsumerGroup, archiveService.HandleMessage); err != nil {
		log.Error("Failed to subscribe to committed-rows topic", "error", err)
		os.Exit(1)
	}

	log.Info("Archiver started",
		"topic", cfg.Kafka.LedgerEventsTopic,
		"group_id", cfg.Kafka.ConsumerGroup,
		"worker_pool_size", cfg.WorkerPool.Size,
	)

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context to stop the poller and consumer
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err := consumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	archiveService.Shutdown()

	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing ledger event producer", "error", err)
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ producer", "error", err)
		}
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Archiver shutdown completed")
}
