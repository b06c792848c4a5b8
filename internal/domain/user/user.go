package user

import (
	"strconv"
	"time"
)

// User represents a marketplace user identified by their Telegram id.
// Balance is held in Stars (the smallest currency unit) and is mutated only
// through ledger operations, never by direct assignment.
type User struct {
	ID           int64     `json:"user_id"` // Telegram user id
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Balance      int64     `json:"balance"`
	TotalDeposit int64     `json:"total_deposit"` // Lifetime sum of settled deposits
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a user with a zero balance
func NewUser(id int64, username, fullName string) *User {
	now := time.Now()
	return &User{
		ID:        id,
		Username:  username,
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ErrUserNotFound indicates missing user
type ErrUserNotFound struct {
	UserID int64
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + strconv.FormatInt(e.UserID, 10)
}

// Is implements the errors.Is interface for ErrUserNotFound
func (e ErrUserNotFound) Is(target error) bool {
	t, ok := target.(ErrUserNotFound)
	if !ok {
		return false
	}
	// A zero target UserID matches any ErrUserNotFound
	if t.UserID == 0 {
		return true
	}
	return e.UserID == t.UserID
}
