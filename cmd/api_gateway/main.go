package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookstore-ledger/internal/api_gateway"
	"github.com/bookstore-ledger/internal/api_gateway/service"
	"github.com/bookstore-ledger/internal/config"
	"github.com/bookstore-ledger/internal/data/mongo"
	"github.com/bookstore-ledger/internal/data/postgres"
	"github.com/bookstore-ledger/internal/inventory"
	"github.com/bookstore-ledger/internal/logger"
	"github.com/bookstore-ledger/internal/platform/gateway/paystack"
	"github.com/bookstore-ledger/internal/platform/messaging/producers"
	"github.com/bookstore-ledger/internal/platform/metrics"
	"github.com/bookstore-ledger/internal/platform/persistence"
	"github.com/bookstore-ledger/internal/settlement/components"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
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

	// Initialize Kafka producer for gateway notifications
	eventProducer, err := producers.NewPaymentEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payment event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := components.Repositories{
		Accounts:     postgres.NewAccountRepository(log, postgresDB),
		Books:        postgres.NewBookRepository(log, postgresDB),
		Records:      postgres.NewRecordRepository(log, postgresDB),
		Transactions: postgres.NewTransactionRepository(log, postgresDB),
		Outbox:       postgres.NewOutboxRepository(log, postgresDB),
	}
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	if err := ledgerRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create ledger indexes", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	paystackClient := paystack.NewClient(log, &cfg.Gateway, m)

	// Initialize services
	settlementService := components.CreateSettlementService(postgresDB, repos, paystackClient, m, log, cfg)
	services := api_gateway.Services{
		Accounts:      service.NewAccountService(log, repos.Accounts),
		Payments:      settlementService,
		Inventory:     inventory.NewService(postgresDB, repos.Books, repos.Records, m, log),
		History:       service.NewHistoryService(log, ledgerRepo),
		Notifications: service.NewNotificationService(log, paystack.NewSigner(cfg.Gateway.SecretKey), eventProducer),
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services, m)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
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

	// Shutdown HTTP server before releasing what handlers depend on
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

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
