package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clearwave-ledger/internal/api"
	"github.com/clearwave-ledger/internal/audit"
	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/config"
	"github.com/clearwave-ledger/internal/currency"
	"github.com/clearwave-ledger/internal/data/mongo"
	"github.com/clearwave-ledger/internal/data/postgres"
	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/ledger"
	"github.com/clearwave-ledger/internal/logger"
	"github.com/clearwave-ledger/internal/platform/persistence"
	"github.com/clearwave-ledger/internal/settlement"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Service",
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

	// Initialize audit pipeline. When disabled, events are dropped at the
	// recorder without touching Kafka.
	var recorder audit.Recorder = audit.NopRecorder{}
	var auditProducer *audit.Producer
	var auditDispatcher *audit.Dispatcher
	if cfg.Audit.Enabled {
		auditProducer, err = audit.NewProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize audit Kafka producer", "error", err)
			os.Exit(1)
		}
		auditDispatcher, err = audit.NewDispatcher(log, auditProducer, cfg.Audit.PoolSize, cfg.Audit.PublishTimeout)
		if err != nil {
			log.Error("Failed to initialize audit dispatcher", "error", err)
			os.Exit(1)
		}
		recorder = auditDispatcher
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	reservationRepo := postgres.NewReservationRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())

	// Initialize authorization and currency registry from configuration
	roleGrants := make(map[string][]auth.Capability, len(cfg.Auth.RoleGrants))
	for role, caps := range cfg.Auth.RoleGrants {
		granted := make([]auth.Capability, 0, len(caps))
		for _, c := range caps {
			granted = append(granted, auth.Capability(c))
		}
		roleGrants[role] = granted
	}
	authorizer := auth.NewRoleAuthorizer(roleGrants)
	registry := currency.NewRegistry(cfg.Currency.DecimalsOverrides)

	overdrawable := make([]account.Type, 0, len(cfg.Ledger.OverdrawableAccountTypes))
	for _, t := range cfg.Ledger.OverdrawableAccountTypes {
		overdrawable = append(overdrawable, account.Type(t))
	}

	// Initialize services
	aggregate := ledger.NewAggregate(log, registry, accountRepo, journalRepo, authorizer, recorder, ledger.Options{
		OverdrawableTypes: overdrawable,
	})
	processor := settlement.NewProcessor(log, registry, accountRepo, reservationRepo, authorizer, recorder)

	// Initialize REST server
	server := api.NewServer(log, cfg, aggregate, aggregate, processor)
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

	// Shutdown HTTP server first so no new writes arrive
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Drain the audit pipeline before closing its producer
	if auditDispatcher != nil {
		auditDispatcher.Close()
	}
	if auditProducer != nil {
		if err = auditProducer.Close(); err != nil {
			log.Error("Error closing audit Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("Ledger service shutdown with errors", "error", serverErr)
	} else {
		log.Info("Ledger service shutdown completed successfully")
	}
}
