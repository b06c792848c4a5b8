package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stars-deposit-ledger/internal/audit"
	tgbot "github.com/stars-deposit-ledger/internal/bot"
	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/data/postgres"
	"github.com/stars-deposit-ledger/internal/logger"
	"github.com/stars-deposit-ledger/internal/platform/messaging/producers"
	"github.com/stars-deposit-ledger/internal/platform/metrics"
	"github.com/stars-deposit-ledger/internal/platform/persistence"
	"github.com/stars-deposit-ledger/internal/settlement"
	"github.com/stars-deposit-ledger/internal/sweeper"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("payment_bot")
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

	auditProducer, err := producers.NewAuditEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize audit event producer", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	userRepo := postgres.NewUserRepository(log, postgresDB)
	depositRepo := postgres.NewDepositRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	settler := settlement.NewService(postgresDB, depositRepo, userRepo, ledgerRepo, outboxRepo,
		&cfg.Deposit, m, log)

	// Settlements run on a bounded pool; concurrent callbacks for the same
	// payload still serialize on the database row lock.
	pooledSettler, err := settlement.NewWorkerPoolService(settler, cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize settlement worker pool", "error", err)
		os.Exit(1)
	}

	paymentBot, err := tgbot.New(cfg, depositRepo, userRepo, pooledSettler, m, log)
	if err != nil {
		log.Error("Failed to initialize telegram bot", "error", err)
		os.Exit(1)
	}

	expirySweeper := sweeper.New(depositRepo, m, log, cfg.Sweeper.Interval)
	outboxPoller := audit.NewPoller(&cfg.Outbox, outboxRepo, auditProducer, log)

	go expirySweeper.Start(appCtx)
	go outboxPoller.Start(appCtx)

	go func() {
		log.Info("Starting payment bot")
		paymentBot.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	pooledSettler.Shutdown()

	if err = auditProducer.Close(); err != nil {
		log.Error("Error closing audit event producer", "error", err)
	}

	postgresDB.Close()

	log.Info("Payment bot shutdown completed")
}
