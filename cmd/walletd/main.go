package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Sahar009/awari-backend-sub002/internal/api"
	"github.com/Sahar009/awari-backend-sub002/internal/api/service"
	"github.com/Sahar009/awari-backend-sub002/internal/archiver"
	"github.com/Sahar009/awari-backend-sub002/internal/booking"
	"github.com/Sahar009/awari-backend-sub002/internal/config"
	"github.com/Sahar009/awari-backend-sub002/internal/data/mongo"
	"github.com/Sahar009/awari-backend-sub002/internal/data/postgres"
	"github.com/Sahar009/awari-backend-sub002/internal/gateway"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
	"github.com/Sahar009/awari-backend-sub002/internal/logger"
	"github.com/Sahar009/awari-backend-sub002/internal/platform/messaging/consumers"
	"github.com/Sahar009/awari-backend-sub002/internal/platform/messaging/producers"
	"github.com/Sahar009/awari-backend-sub002/internal/platform/persistence"
	"github.com/Sahar009/awari-backend-sub002/internal/release"
	"github.com/Sahar009/awari-backend-sub002/internal/withdrawal"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("walletd")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting wallet service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())

	// Initialize the ledger engine and its collaborators
	mutator := ledger.NewMutator(postgresDB, walletRepo, transactionRepo, outboxRepo, cfg.Ledger.LockTimeout, log)
	gatewayClient := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey, cfg.Gateway.Timeout, log)
	workflow := withdrawal.NewWorkflow(mutator, transactionRepo, gatewayClient, log)

	// Initialize API services
	walletService := service.NewWalletService(
		walletRepo, transactionRepo, statementRepo,
		mutator, workflow, gatewayClient,
		cfg.Ledger.Currency, log,
	)
	webhookService := service.NewWebhookService(cfg.Gateway.SecretKey, walletRepo, mutator, workflow, log)

	// Initialize booking settlement pipeline
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)
	dlqProducer := producers.NewDLQProducer(log, &cfg.Kafka)
	bookingHandler := booking.NewHandler(mutator, transactionRepo, dlqProducer, log)

	// Initialize background workers
	sweeper, err := release.NewSweeper(&cfg.Release, mutator, transactionRepo, log)
	if err != nil {
		log.Error("Failed to initialize release sweeper", "error", err)
		os.Exit(1)
	}
	poller := archiver.NewPoller(&cfg.Outbox, outboxRepo, statementRepo, log)

	// Initialize REST server
	server := api.NewServer(log, cfg, walletService, workflow, webhookService)
	log.Info("REST server initialized")

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown of background workers
	var wg sync.WaitGroup

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start booking settlement consumer
	if err := kafkaConsumer.Subscribe(appCtx, bookingHandler.Handle); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	// Start release sweeper
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(appCtx)
	}()

	// Start statement archiver
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new mutations arrive
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for background workers to finish their current batch
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Background workers stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	sweeper.Shutdown()

	// Close Kafka consumer and DLQ producer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Wallet service shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Wallet service shutdown completed successfully")
	}
}
