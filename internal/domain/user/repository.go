package user

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines user persistence operations
type Repository interface {
	// GetOrCreate returns the user with the given id, inserting a fresh row
	// with a zero balance when none exists yet.
	GetOrCreate(ctx context.Context, id int64, username, fullName string) (*User, error)

	// GetByID retrieves a user by their Telegram id
	// Returns ErrUserNotFound if the user doesn't exist
	GetByID(ctx context.Context, id int64) (*User, error)

	// Credit atomically adds amount to the user's balance and, when the
	// amount is positive and of deposit kind, to their lifetime deposit total.
	// Must run inside the same transaction as the ledger append.
	Credit(ctx context.Context, id int64, amount int64, countAsDeposit bool) error

	WithTx(tx pgx.Tx) Repository
}
