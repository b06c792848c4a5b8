package deposit

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// PayloadTag is the literal prefix of every deposit payload
const PayloadTag = "deposit"

const payloadSep = ":"

// ErrMalformedPayload indicates a token that does not match the expected
// five-field shape.
var ErrMalformedPayload = errors.New("malformed deposit payload")

// Payload is the parsed form of the opaque deposit token. The wire format is
//
//	deposit:<user_id>:<amount>:<code>:<unix_ts>
//
// where code is a random four-digit nonce. The token is not signed: its
// integrity comes from having to match a stored pending transaction, not
// from self-verification.
type Payload struct {
	UserID   int64
	Amount   int64
	Code     int
	IssuedAt time.Time
}

// NewPayload draws a fresh nonce for a deposit intent. Uniqueness is
// probabilistic; the unique index on the transactions table catches the
// rare collision and the caller retries.
func NewPayload(userID int64, amount int64, now time.Time) Payload {
	return Payload{
		UserID:   userID,
		Amount:   amount,
		Code:     1000 + rand.Intn(9000),
		IssuedAt: now,
	}
}

// String encodes the payload in its wire format. Encoding is deterministic
// for fixed fields.
func (p Payload) String() string {
	return strings.Join([]string{
		PayloadTag,
		strconv.FormatInt(p.UserID, 10),
		strconv.FormatInt(p.Amount, 10),
		strconv.Itoa(p.Code),
		strconv.FormatInt(p.IssuedAt.Unix(), 10),
	}, payloadSep)
}

// ParsePayload decodes a wire token. It validates shape and field types
// only; whether the token refers to a live transaction is decided by the
// transaction table lookup.
func ParsePayload(s string) (Payload, error) {
	parts := strings.Split(s, payloadSep)
	if len(parts) != 5 || parts[0] != PayloadTag {
		return Payload{}, ErrMalformedPayload
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: bad user id %q", ErrMalformedPayload, parts[1])
	}
	amount, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: bad amount %q", ErrMalformedPayload, parts[2])
	}
	code, err := strconv.Atoi(parts[3])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: bad code %q", ErrMalformedPayload, parts[3])
	}
	ts, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedPayload, parts[4])
	}

	return Payload{
		UserID:   userID,
		Amount:   amount,
		Code:     code,
		IssuedAt: time.Unix(ts, 0),
	}, nil
}

// IsPayload reports whether s looks like a raw deposit token rather than a
// short link id. Used by the bot to tell the two /start argument forms apart.
func IsPayload(s string) bool {
	return strings.HasPrefix(s, PayloadTag+payloadSep)
}
