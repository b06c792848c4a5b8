package deposit

import (
	"fmt"
	"strconv"
)

// ErrInvalidAmount indicates a deposit amount outside the configured bounds
type ErrInvalidAmount struct {
	Amount int64
	Min    int64
	Max    int64
}

func (e ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid deposit amount %d: must be between %d and %d", e.Amount, e.Min, e.Max)
}

// Is implements the errors.Is interface for ErrInvalidAmount
func (e ErrInvalidAmount) Is(target error) bool {
	_, ok := target.(ErrInvalidAmount)
	return ok
}

// ErrTransactionExpired indicates a settlement or precheck attempt against a
// transaction that is no longer pending. A payment that still completes on the
// provider side after expiry is rejected and left for manual reconciliation;
// it is never credited automatically.
type ErrTransactionExpired struct {
	Payload string
}

func (e ErrTransactionExpired) Error() string {
	return "deposit transaction expired: " + e.Payload
}

// Is implements the errors.Is interface for ErrTransactionExpired
func (e ErrTransactionExpired) Is(target error) bool {
	t, ok := target.(ErrTransactionExpired)
	if !ok {
		return false
	}
	if t.Payload == "" {
		return true
	}
	return e.Payload == t.Payload
}

// ErrAmountMismatch indicates the paid amount differs from the recorded intent
type ErrAmountMismatch struct {
	Payload string
	Want    int64
	Got     int64
}

func (e ErrAmountMismatch) Error() string {
	return fmt.Sprintf("deposit amount mismatch for %s: want %d, got %d", e.Payload, e.Want, e.Got)
}

// Is implements the errors.Is interface for ErrAmountMismatch
func (e ErrAmountMismatch) Is(target error) bool {
	t, ok := target.(ErrAmountMismatch)
	if !ok {
		return false
	}
	if t.Payload == "" {
		return true
	}
	return e.Payload == t.Payload
}

// ErrUserMismatch indicates the paying user differs from the intent's owner
type ErrUserMismatch struct {
	Payload string
	Want    int64
	Got     int64
}

func (e ErrUserMismatch) Error() string {
	return fmt.Sprintf("deposit user mismatch for %s: want %s, got %s",
		e.Payload, strconv.FormatInt(e.Want, 10), strconv.FormatInt(e.Got, 10))
}

// Is implements the errors.Is interface for ErrUserMismatch
func (e ErrUserMismatch) Is(target error) bool {
	t, ok := target.(ErrUserMismatch)
	if !ok {
		return false
	}
	if t.Payload == "" {
		return true
	}
	return e.Payload == t.Payload
}

// ErrUnsupportedCurrency indicates a payment in anything but the configured
// Stars currency.
type ErrUnsupportedCurrency struct {
	Currency string
}

func (e ErrUnsupportedCurrency) Error() string {
	return "unsupported currency: " + e.Currency
}

// Is implements the errors.Is interface for ErrUnsupportedCurrency
func (e ErrUnsupportedCurrency) Is(target error) bool {
	t, ok := target.(ErrUnsupportedCurrency)
	if !ok {
		return false
	}
	if t.Currency == "" {
		return true
	}
	return e.Currency == t.Currency
}
