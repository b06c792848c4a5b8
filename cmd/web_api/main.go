package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/data/postgres"
	"github.com/stars-deposit-ledger/internal/logger"
	"github.com/stars-deposit-ledger/internal/platform/metrics"
	"github.com/stars-deposit-ledger/internal/platform/persistence"
	"github.com/stars-deposit-ledger/internal/settlement"
	"github.com/stars-deposit-ledger/internal/web"
	"github.com/stars-deposit-ledger/internal/web/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("web_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(log, postgresDB)
	depositRepo := postgres.NewDepositRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// The verify endpoint shares the settlement state machine with the bot
	settler := settlement.NewService(postgresDB, depositRepo, userRepo, ledgerRepo, outboxRepo,
		&cfg.Deposit, m, log)

	linkIssuer := service.NewTelegramLinkIssuer(cfg.Telegram.BotUsername)
	depositService := service.NewDepositService(postgresDB, depositRepo, userRepo, settler,
		linkIssuer, &cfg.Deposit, &cfg.Security, m, log)
	userService := service.NewUserService(userRepo, ledgerRepo, log)

	server := web.NewServer(log, cfg, depositService, userService)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if serverErr != nil {
		log.Error("Server shutdown completed with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
