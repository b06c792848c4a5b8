package handler

import (
	"time"

	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/domain/user"
)

// InitDepositRequest is the body of a deposit initiation call
type InitDepositRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// DepositResponse describes a freshly created deposit intent
type DepositResponse struct {
	TransactionID int64     `json:"transaction_id"`
	Payload       string    `json:"payload"`
	PaymentLink   string    `json:"payment_link"`
	Amount        int64     `json:"amount"`
	ExpiresIn     int64     `json:"expires_in"` // Seconds until expiry
	ExpiresAt     time.Time `json:"expires_at"`
}

// DepositStatusResponse describes the current state of a deposit intent
type DepositStatusResponse struct {
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	Amount      int64      `json:"amount"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// VerifyRequest is the body of a trusted-backend settlement verification call
type VerifyRequest struct {
	ChargeID string `json:"charge_id" binding:"required"`
	Payload  string `json:"payload" binding:"required"`
	UserID   int64  `json:"user_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

// VerifyResponse reports how a settlement verification concluded
type VerifyResponse struct {
	Payload string `json:"payload"`
	Settled bool   `json:"settled"`
	// Duplicate is true when a prior call already credited this deposit
	Duplicate bool `json:"duplicate"`
}

// UserResponse describes a user's balance and profile
type UserResponse struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Balance      int64     `json:"balance"`
	TotalDeposit int64     `json:"total_deposit"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerEntryResponse describes one ledger entry in a history listing
type LedgerEntryResponse struct {
	EntryID     string    `json:"entry_id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDepositResponse(trans *deposit.Transaction, paymentLink string, now time.Time) *DepositResponse {
	expiresIn := int64(trans.ExpiresAt.Sub(now).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &DepositResponse{
		TransactionID: trans.ID,
		Payload:       trans.Payload,
		PaymentLink:   paymentLink,
		Amount:        trans.Amount,
		ExpiresIn:     expiresIn,
		ExpiresAt:     trans.ExpiresAt,
	}
}

func toDepositStatusResponse(trans *deposit.Transaction) *DepositStatusResponse {
	return &DepositStatusResponse{
		Payload:     trans.Payload,
		Status:      string(trans.Status),
		Amount:      trans.Amount,
		CreatedAt:   trans.CreatedAt,
		CompletedAt: trans.CompletedAt,
		ExpiresAt:   trans.ExpiresAt,
	}
}

func toUserResponse(u *user.User) *UserResponse {
	return &UserResponse{
		UserID:       u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Balance:      u.Balance,
		TotalDeposit: u.TotalDeposit,
		CreatedAt:    u.CreatedAt,
	}
}
