package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Business-rule rejections surfaced directly to the caller. None of these are
// retried internally.
var (
	ErrNotClient         = errors.New("user is not a client")
	ErrJobNotFound       = errors.New("job not found")
	ErrAlreadyPaid       = errors.New("job is already paid")
	ErrInsufficientFunds = errors.New("insufficient funds to pay job")
	ErrMissingAmount     = errors.New("field amount needs to be sent")
)

// DepositCapError is returned when a deposit exceeds 25% of the client's
// outstanding unpaid job total. MaxAllowed carries the computed cap so the
// caller can report it.
type DepositCapError struct {
	MaxAllowed decimal.Decimal
}

func (e *DepositCapError) Error() string {
	return fmt.Sprintf("deposit amount exceeds maximum allowed: %s", e.MaxAllowed)
}
