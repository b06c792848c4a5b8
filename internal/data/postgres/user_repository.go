// Package postgres provides PostgreSQL implementations of the domain
// repositories. Postgres holds the authoritative user balances, the deposit
// transaction table, the append-only ledger, and the audit outbox; all money
// movement is synchronized here.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stars-deposit-ledger/internal/domain/user"
	"github.com/stars-deposit-ledger/internal/platform/persistence"
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewUserRepository(logger *slog.Logger, db *persistence.PostgresDB) user.Repository {
	return &UserRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *UserRepository) WithTx(tx pgx.Tx) user.Repository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetOrCreate upserts the user row keyed by Telegram id. Username and full
// name are refreshed on every call since Telegram profiles change.
func (r *UserRepository) GetOrCreate(ctx context.Context, id int64, username, fullName string) (*user.User, error) {
	query := `
		INSERT INTO users (user_id, username, full_name, balance, total_deposit, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username, full_name = EXCLUDED.full_name, updated_at = NOW()
		RETURNING user_id, username, full_name, balance, total_deposit, created_at, updated_at
	`

	var u user.User
	err := r.querier.QueryRow(ctx, query, id, username, fullName).Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.Balance,
		&u.TotalDeposit,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to get or create user", "userID", id, "error", err)
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}

	return &u, nil
}

// GetByID retrieves a user by their Telegram id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT user_id, username, full_name, balance, total_deposit, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	var u user.User
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.Balance,
		&u.TotalDeposit,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{UserID: id}
		}
		r.logger.Error("Failed to get user", "userID", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// Credit atomically adds amount to the user's balance. When countAsDeposit is
// set the lifetime deposit total grows by the same amount. Callers run this
// inside the settlement transaction so the balance never drifts from the
// ledger.
func (r *UserRepository) Credit(ctx context.Context, id int64, amount int64, countAsDeposit bool) error {
	depositDelta := int64(0)
	if countAsDeposit {
		depositDelta = amount
	}

	query := `
		UPDATE users
		SET balance = balance + $1, total_deposit = total_deposit + $2, updated_at = NOW()
		WHERE user_id = $3
	`

	result, err := r.querier.Exec(ctx, query, amount, depositDelta, id)
	if err != nil {
		r.logger.Error("Failed to credit user", "userID", id, "error", err)
		return fmt.Errorf("failed to credit user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound{UserID: id}
	}

	return nil
}
