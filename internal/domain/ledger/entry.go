package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a balance-affecting event
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindPurchase Kind = "purchase"
	KindClaim    Kind = "claim"
)

var ErrInvalidKind = errors.New("invalid ledger entry kind")

// ValidKind reports whether k is one of the known entry kinds
func ValidKind(k Kind) bool {
	switch k {
	case KindDeposit, KindWithdraw, KindPurchase, KindClaim:
		return true
	}
	return false
}

// Entry is an immutable, append-only record of a balance change. A user's
// balance is the sum of all entry amounts for that user; the maintained
// running total on the user row is kept consistent by writing both inside
// one transaction.
type Entry struct {
	ID          int64     `json:"id" bson:"id"`
	EntryID     uuid.UUID `json:"entry_id" bson:"entry_id"`
	UserID      int64     `json:"user_id" bson:"user_id"`
	Amount      int64     `json:"amount" bson:"amount"` // Signed delta in Stars
	Kind        Kind      `json:"kind" bson:"kind"`
	Description string    `json:"description" bson:"description"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// NewEntry builds an entry with a fresh unique id
func NewEntry(userID int64, amount int64, kind Kind, description string) (*Entry, error) {
	if !ValidKind(kind) {
		return nil, ErrInvalidKind
	}
	return &Entry{
		EntryID:     uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}
