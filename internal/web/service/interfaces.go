// Package service holds the web API's application services: deposit intent
// creation and lookup for the marketplace frontend, plus the authenticated
// settlement verification path.
package service

import (
	"context"
	"errors"

	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/domain/ledger"
	"github.com/stars-deposit-ledger/internal/domain/user"
	"github.com/stars-deposit-ledger/internal/settlement"
)

// ErrUnauthorized indicates a verification call with a bad api key
var ErrUnauthorized = errors.New("unauthorized")

// InitDepositRequest carries a deposit initiation call
type InitDepositRequest struct {
	UserID   int64
	Amount   int64
	Username string
	FullName string
}

// InitResult is the outcome of a successful deposit initiation
type InitResult struct {
	Transaction *deposit.Transaction
	PaymentLink string
}

// VerifyRequest is a settlement verification call from the trusted backend
type VerifyRequest struct {
	ChargeID string
	Payload  string
	UserID   int64
	Amount   int64
	APIKey   string
}

// LinkIssuer turns a stored payment link id into the user-facing URL.
// Issuance must not run inside the database transaction; on failure the
// caller compensates the never-exposed pending record away.
type LinkIssuer interface {
	Issue(ctx context.Context, link *deposit.PaymentLink) (string, error)
}

// DepositService defines the deposit initiator operations
type DepositService interface {
	// InitDeposit records a pending deposit intent and returns its payment
	// link, creating the user row first so settlement always has an account
	// to credit. Returns deposit.ErrInvalidAmount for out-of-bounds amounts;
	// nothing is persisted in that case.
	InitDeposit(ctx context.Context, req *InitDepositRequest) (*InitResult, error)

	// CheckStatus reports the current state of a deposit intent.
	// Returns deposit.ErrTransactionNotFound if the payload is unknown.
	CheckStatus(ctx context.Context, payload string) (*deposit.Transaction, error)

	// Cancel abandons a pending intent. Returns deposit.ErrAlreadyFinal when
	// the intent already reached a terminal status.
	Cancel(ctx context.Context, payload string) error

	// VerifySettlement settles a deposit on behalf of the trusted backend.
	// The api key is checked before anything else; ErrUnauthorized on mismatch.
	VerifySettlement(ctx context.Context, req *VerifyRequest) (settlement.Outcome, error)
}

// UserService defines user profile and history operations
type UserService interface {
	// GetUser retrieves a user's balance and profile.
	// Returns user.ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id int64) (*user.User, error)

	// GetTransactions retrieves a paginated ledger history for a user.
	// Returns entries, total count, and any error.
	GetTransactions(ctx context.Context, userID int64, page, perPage int) ([]*ledger.Entry, int64, error)
}
