package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stars-deposit-ledger/internal/domain/ledger"
	"github.com/stars-deposit-ledger/internal/platform/messaging/producers"
)

// Archiver handles audit stream messages and writes them to the archive store
type Archiver struct {
	archiveRepo ledger.ArchiveRepository
	dlqProducer producers.DeadLetterPublisher
	logger      *slog.Logger
}

func NewArchiver(
	logger *slog.Logger,
	archiveRepo ledger.ArchiveRepository,
	dlqProducer producers.DeadLetterPublisher,
) *Archiver {
	return &Archiver{
		archiveRepo: archiveRepo,
		dlqProducer: dlqProducer,
		logger:      logger,
	}
}

// HandleMessage archives one audit stream message. Unparseable messages go to
// the DLQ so they cannot wedge the consumer group; archive write failures are
// returned for redelivery.
func (a *Archiver) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var entry ledger.Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal ledger entry from audit message"
		a.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if a.dlqProducer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := a.dlqProducer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				a.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				// Parked on the DLQ; commit the offset.
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal audit message value: %w", err)
	}

	if err := a.archiveRepo.Archive(ctx, &entry); err != nil {
		a.logger.Error("Failed to archive ledger entry",
			"entry_id", entry.EntryID.String(),
			"user_id", entry.UserID,
			"error", err,
		)
		return fmt.Errorf("archiving entry %s failed: %w", entry.EntryID.String(), err)
	}

	a.logger.Info("Archived ledger entry",
		"entry_id", entry.EntryID.String(),
		"user_id", entry.UserID,
		"kind", string(entry.Kind),
	)
	return nil
}
