// Package settlement reconciles provider payment callbacks against recorded
// deposit intents and credits the ledger exactly once per intent.
package settlement

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PrecheckRequest carries the fields of a provider pre-checkout query
type PrecheckRequest struct {
	QueryID  string
	UserID   int64
	Payload  string
	Currency string
	Amount   int64
}

// SettleRequest carries the fields of a provider successful-payment callback
type SettleRequest struct {
	ChargeID string
	UserID   int64
	Payload  string
	Amount   int64
}

// Outcome describes how a settle call concluded
type Outcome int

const (
	// OutcomeUnknown is the zero value, returned alongside an error. It is
	// never a valid conclusion on its own; a credit is reported only by the
	// two explicit outcomes below.
	OutcomeUnknown Outcome = iota
	// Settled means this call credited the deposit
	Settled
	// AlreadySettled means a previous call already credited it; nothing changed
	AlreadySettled
)

// Service is the settlement state machine. Precheck is advisory; Settle is
// the single write path that moves money.
type Service interface {
	Precheck(ctx context.Context, req *PrecheckRequest) error
	Settle(ctx context.Context, req *SettleRequest) (Outcome, error)
}

// TxRunner abstracts the transactional boundary so the service can be tested
// against pgxmock. *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
