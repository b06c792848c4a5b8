package deposit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines deposit transaction persistence operations
type Repository interface {
	// Create inserts a pending transaction, filling in its id.
	// Returns ErrDuplicatePayload if the payload already exists.
	Create(ctx context.Context, trans *Transaction) error

	// GetByPayload retrieves a transaction by its payload
	// Returns ErrTransactionNotFound if absent
	GetByPayload(ctx context.Context, payload string) (*Transaction, error)

	// LockByPayload retrieves a transaction with a pessimistic row lock.
	// Must be called inside a transaction; concurrent settlement attempts
	// for the same payload serialize on this lock.
	LockByPayload(ctx context.Context, payload string) (*Transaction, error)

	// MarkCompleted flips a pending transaction to completed, recording the
	// provider charge id and completion time. Returns ErrAlreadyFinal if the
	// row is no longer pending.
	MarkCompleted(ctx context.Context, id int64, chargeID string, completedAt time.Time) error

	// Cancel flips a pending transaction to expired on explicit user
	// cancellation. Returns ErrAlreadyFinal if the row is no longer pending,
	// ErrTransactionNotFound if absent.
	Cancel(ctx context.Context, payload string) error

	// Delete removes a transaction row. Only legal for a pending record whose
	// payment link was never issued; settled or exposed records are retained
	// for audit.
	Delete(ctx context.Context, id int64) error

	// ExpireStale flips every pending transaction past its expiry to expired
	// and returns how many rows changed. Idempotent.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)

	// CreateLink stores the short link id for a transaction's payload
	CreateLink(ctx context.Context, link *PaymentLink) error

	// GetLink resolves a short link id back to its payload.
	// Returns ErrLinkNotFound if absent or past its expiry.
	GetLink(ctx context.Context, linkID string) (*PaymentLink, error)

	WithTx(tx pgx.Tx) Repository
}
