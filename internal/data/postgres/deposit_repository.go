package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// DepositRepository implements the deposit.Repository interface for PostgreSQL
type DepositRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewDepositRepository creates a new PostgreSQL deposit repository
func NewDepositRepository(logger *slog.Logger, db *persistence.PostgresDB) deposit.Repository {
	return &DepositRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *DepositRepository) WithTx(tx pgx.Tx) deposit.Repository {
	return &DepositRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a pending deposit transaction. The payload column carries a
// unique constraint; a collision surfaces as ErrDuplicatePayload so the
// caller can redraw the nonce.
func (r *DepositRepository) Create(ctx context.Context, trans *deposit.Transaction) error {
	query := `
		INSERT INTO deposit_transactions (user_id, amount, payload, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		trans.UserID,
		trans.Amount,
		trans.Payload,
		trans.Status,
		trans.CreatedAt,
		trans.ExpiresAt,
	).Scan(&trans.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return deposit.ErrDuplicatePayload{Payload: trans.Payload}
		}
		r.logger.Error("Failed to create deposit transaction", "payload", trans.Payload, "error", err)
		return fmt.Errorf("failed to create deposit transaction: %w", err)
	}

	return nil
}

// GetByPayload retrieves a transaction by its payload
func (r *DepositRepository) GetByPayload(ctx context.Context, payload string) (*deposit.Transaction, error) {
	query := `
		SELECT id, user_id, amount, payload, charge_id, status, created_at, completed_at, expires_at
		FROM deposit_transactions
		WHERE payload = $1
	`

	return r.scanTransaction(ctx, query, payload)
}

// LockByPayload retrieves a transaction with FOR UPDATE so that concurrent
// settlement attempts for the same payload serialize. Must run inside a
// transaction.
func (r *DepositRepository) LockByPayload(ctx context.Context, payload string) (*deposit.Transaction, error) {
	query := `
		SELECT id, user_id, amount, payload, charge_id, status, created_at, completed_at, expires_at
		FROM deposit_transactions
		WHERE payload = $1
		FOR UPDATE
	`

	return r.scanTransaction(ctx, query, payload)
}

func (r *DepositRepository) scanTransaction(ctx context.Context, query, payload string) (*deposit.Transaction, error) {
	var trans deposit.Transaction
	err := r.querier.QueryRow(ctx, query, payload).Scan(
		&trans.ID,
		&trans.UserID,
		&trans.Amount,
		&trans.Payload,
		&trans.ChargeID,
		&trans.Status,
		&trans.CreatedAt,
		&trans.CompletedAt,
		&trans.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, deposit.ErrTransactionNotFound{Payload: payload}
		}
		r.logger.Error("Failed to get deposit transaction", "payload", payload, "error", err)
		return nil, fmt.Errorf("failed to get deposit transaction: %w", err)
	}

	return &trans, nil
}

// MarkCompleted flips a pending transaction to completed. The status guard in
// the WHERE clause is what makes settlement exactly-once even under races.
func (r *DepositRepository) MarkCompleted(ctx context.Context, id int64, chargeID string, completedAt time.Time) error {
	query := `
		UPDATE deposit_transactions
		SET status = $1, charge_id = $2, completed_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.querier.Exec(ctx, query, deposit.StatusCompleted, chargeID, completedAt, id, deposit.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark deposit completed", "id", id, "error", err)
		return fmt.Errorf("failed to mark deposit completed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return deposit.ErrAlreadyFinal{}
	}

	return nil
}

// Cancel flips a pending transaction to expired on user request
func (r *DepositRepository) Cancel(ctx context.Context, payload string) error {
	query := `
		UPDATE deposit_transactions
		SET status = $1
		WHERE payload = $2 AND status = $3
	`

	result, err := r.querier.Exec(ctx, query, deposit.StatusExpired, payload, deposit.StatusPending)
	if err != nil {
		r.logger.Error("Failed to cancel deposit", "payload", payload, "error", err)
		return fmt.Errorf("failed to cancel deposit: %w", err)
	}

	if result.RowsAffected() == 0 {
		existing, getErr := r.GetByPayload(ctx, payload)
		if getErr != nil {
			return getErr
		}
		return deposit.ErrAlreadyFinal{Payload: payload, Status: existing.Status}
	}

	return nil
}

// Delete removes a transaction row. Used only to compensate a failed link
// issuance before the payload was ever exposed.
func (r *DepositRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM deposit_transactions WHERE id = $1`

	_, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete deposit transaction", "id", id, "error", err)
		return fmt.Errorf("failed to delete deposit transaction: %w", err)
	}

	return nil
}

// ExpireStale flips every pending transaction past its expiry to expired
func (r *DepositRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE deposit_transactions
		SET status = $1
		WHERE status = $2 AND expires_at <= $3
	`

	result, err := r.querier.Exec(ctx, query, deposit.StatusExpired, deposit.StatusPending, now)
	if err != nil {
		r.logger.Error("Failed to expire stale deposits", "error", err)
		return 0, fmt.Errorf("failed to expire stale deposits: %w", err)
	}

	return result.RowsAffected(), nil
}

// CreateLink stores the short link id for a transaction's payload
func (r *DepositRepository) CreateLink(ctx context.Context, link *deposit.PaymentLink) error {
	query := `
		INSERT INTO payment_links (link_id, payload, transaction_id, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.querier.Exec(ctx, query, link.LinkID, link.Payload, link.TransactionID, link.ExpiresAt)
	if err != nil {
		r.logger.Error("Failed to create payment link", "linkID", link.LinkID, "error", err)
		return fmt.Errorf("failed to create payment link: %w", err)
	}

	return nil
}

// GetLink resolves a short link id back to its payload. Expired links are
// treated as absent so a stale deep link cannot restart a dead deposit.
func (r *DepositRepository) GetLink(ctx context.Context, linkID string) (*deposit.PaymentLink, error) {
	query := `
		SELECT link_id, payload, transaction_id, expires_at
		FROM payment_links
		WHERE link_id = $1 AND expires_at > NOW()
	`

	var link deposit.PaymentLink
	err := r.querier.QueryRow(ctx, query, linkID).Scan(
		&link.LinkID,
		&link.Payload,
		&link.TransactionID,
		&link.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, deposit.ErrLinkNotFound{LinkID: linkID}
		}
		r.logger.Error("Failed to get payment link", "linkID", linkID, "error", err)
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}

	return &link, nil
}
