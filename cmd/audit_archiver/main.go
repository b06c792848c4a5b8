package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stars-deposit-ledger/internal/audit"
	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/data/mongo"
	"github.com/stars-deposit-ledger/internal/logger"
	"github.com/stars-deposit-ledger/internal/platform/messaging/consumers"
	"github.com/stars-deposit-ledger/internal/platform/messaging/producers"
	"github.com/stars-deposit-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("audit_archiver")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}

	archiveRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// NewDLQProducer returns a typed nil when the DLQ topic is not configured;
	// keep the interface nil in that case so the archiver skips the DLQ path.
	var dlqPublisher producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlqPublisher = dlqProducer
	}
	archiver := audit.NewArchiver(log, archiveRepo, dlqPublisher)

	consumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	if err := consumer.Subscribe(appCtx, cfg.Kafka.AuditTopic, cfg.Kafka.ConsumerGroup, archiver.HandleMessage); err != nil {
		log.Error("Failed to subscribe to audit topic", "error", err)
		os.Exit(1)
	}

	log.Info("Audit archiver started", "topic", cfg.Kafka.AuditTopic)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	if err = consumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ producer", "error", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Audit archiver shutdown completed")
}
