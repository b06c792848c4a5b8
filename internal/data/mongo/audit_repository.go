// Package mongo implements the audit archive store. The archive is a derived
// copy of the Postgres ledger fed through the outbox stream; it answers audit
// queries without touching the authoritative database.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stars-deposit-ledger/internal/domain/ledger"
)

const (
	// ArchiveCollectionName is the name of the ledger archive collection
	ArchiveCollectionName = "ledger_archive"
)

// AuditRepository implements the ledger.ArchiveRepository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit archive repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) ledger.ArchiveRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Archive upserts a ledger entry keyed by its entry id. The audit stream is
// at-least-once, so redelivered entries overwrite their identical prior copy
// instead of duplicating.
func (r *AuditRepository) Archive(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"entry_id": entry.EntryID}
	update := bson.M{"$set": entry}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		r.logger.Error("Failed to archive ledger entry",
			"entry_id", entry.EntryID.String(),
			"error", err)
		return fmt.Errorf("failed to archive ledger entry: %w", err)
	}

	return nil
}

// GetByEntryID retrieves an archived entry by its entry id.
// Returns ErrEntryNotFound if the entry has not been archived.
func (r *AuditRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"entry_id": entryID}
	var entry ledger.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{EntryID: entryID}
		}
		r.logger.Error("Failed to get archived ledger entry",
			"entry_id", entryID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archived ledger entry: %w", err)
	}

	return &entry, nil
}

// GetByTimeRange retrieves paginated archived entries within the time window.
// Results are sorted by creation time in descending order for recent-first access.
func (r *AuditRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get archived ledger entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get archived ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode archived ledger entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode archived ledger entries: %w", err)
	}

	return entries, nil
}
