// Package deposit holds the deposit intent model and the payload codec that
// ties the web frontend, the Telegram payment flow, and settlement together.
package deposit

import (
	"fmt"
	"time"
)

// Status tracks a deposit transaction through its lifecycle. A transaction
// leaves StatusPending at most once; every non-pending status is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// Final reports whether s is a terminal status
func (s Status) Final() bool {
	return s != StatusPending
}

// Transaction is a deposit intent created by the web frontend and settled by
// the payment bot. The payload is the globally unique token that both sides
// agree on; it is never reused, even after expiry.
type Transaction struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Amount      int64      `json:"amount"` // Stars
	Payload     string     `json:"payload"`
	ChargeID    *string    `json:"charge_id,omitempty"` // Provider charge id, set on settlement
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// NewTransaction creates a pending deposit intent expiring after ttl
func NewTransaction(userID int64, amount int64, payload string, ttl time.Duration) *Transaction {
	now := time.Now()
	return &Transaction{
		UserID:    userID,
		Amount:    amount,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// PaymentLink maps a short opaque identifier to a deposit payload. The
// Telegram deep-link start parameter cannot carry the raw payload (it
// contains the field delimiter), so the bot resolves the link id back to the
// payload. Links expire together with their parent transaction.
type PaymentLink struct {
	LinkID        string    `json:"link_id"`
	Payload       string    `json:"payload"`
	TransactionID int64     `json:"transaction_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ErrTransactionNotFound indicates that no deposit owns the payload
type ErrTransactionNotFound struct {
	Payload string
}

func (e ErrTransactionNotFound) Error() string {
	return "deposit transaction not found: " + e.Payload
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	// An empty target payload matches any ErrTransactionNotFound
	if t.Payload == "" {
		return true
	}
	return e.Payload == t.Payload
}

// ErrDuplicatePayload indicates payload uniqueness violation on insert.
// The caller should retry with a freshly drawn nonce.
type ErrDuplicatePayload struct {
	Payload string
}

func (e ErrDuplicatePayload) Error() string {
	return "duplicate deposit payload: " + e.Payload
}

// Is implements the errors.Is interface for ErrDuplicatePayload
func (e ErrDuplicatePayload) Is(target error) bool {
	t, ok := target.(ErrDuplicatePayload)
	if !ok {
		return false
	}
	if t.Payload == "" {
		return true
	}
	return e.Payload == t.Payload
}

// ErrAlreadyFinal indicates an operation that requires a pending transaction
// hit one that has already reached a terminal status.
type ErrAlreadyFinal struct {
	Payload string
	Status  Status
}

func (e ErrAlreadyFinal) Error() string {
	return fmt.Sprintf("deposit transaction already %s: %s", e.Status, e.Payload)
}

// Is implements the errors.Is interface for ErrAlreadyFinal
func (e ErrAlreadyFinal) Is(target error) bool {
	t, ok := target.(ErrAlreadyFinal)
	if !ok {
		return false
	}
	if t.Payload == "" {
		return true
	}
	return e.Payload == t.Payload
}

// ErrLinkNotFound indicates a missing or already-expired payment link
type ErrLinkNotFound struct {
	LinkID string
}

func (e ErrLinkNotFound) Error() string {
	return "payment link not found: " + e.LinkID
}

// Is implements the errors.Is interface for ErrLinkNotFound
func (e ErrLinkNotFound) Is(target error) bool {
	t, ok := target.(ErrLinkNotFound)
	if !ok {
		return false
	}
	if t.LinkID == "" {
		return true
	}
	return e.LinkID == t.LinkID
}
