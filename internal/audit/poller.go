// Package audit moves settled ledger entries from the transactional outbox
// through Kafka into the archive store. Everything here is downstream of the
// Postgres commit; a failure delays the archive but never a credit.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/domain/outbox"
	"github.com/stars-deposit-ledger/internal/platform/messaging/producers"
)

// Poller publishes pending outbox messages to the audit topic
type Poller struct {
	outboxRepo       outbox.Repository
	producer         producers.MessagePublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		producer:         producer,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until the context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting audit outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Audit outbox poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := p.publish(ctx, msg); err != nil {
			p.logger.Error("Failed to publish outbox message to audit topic",
				"outbox_id", msg.ID, "entry_id", msg.EntryID, "current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				p.logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
					"outbox_id", msg.ID, "entry_id", msg.EntryID, "attempts_made", msg.Attempts+1,
				)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
					p.logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", errUpdate)
				}
			}
			continue
		}

		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); err != nil {
			// The message will be republished next tick; the archive upsert
			// dedupes on entry id.
			p.logger.Error("Published outbox message but failed to mark it PROCESSED",
				"outbox_id", msg.ID, "entry_id", msg.EntryID, "error", err,
			)
			continue
		}

		p.logger.Info("Published outbox message to audit topic", "outbox_id", msg.ID, "entry_id", msg.EntryID)
	}
	return nil
}

func (p *Poller) publish(ctx context.Context, msg *outbox.Message) error {
	entry, err := msg.GetLedgerEntry()
	if err != nil {
		// Unparseable payload will never publish; park it immediately.
		if updateErr := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark unparseable outbox message FAILED_TO_PUBLISH", "outbox_id", msg.ID, "error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", msg.ID, err)
	}

	return p.producer.Publish(ctx, entry.EntryID.String(), entry)
}
