package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnauthorized is returned when the caller lacks the mint/burn
	// capability, or a non-owner invokes an owner-gated operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNonPositiveAmount is returned for zero or negative amounts
	// (other than the EntireBalance sentinel where it is accepted).
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// InsufficientBalanceError is returned when a burn or transfer exceeds the
// settled balance of the debited account.
type InsufficientBalanceError struct {
	Account   string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: requested %s, available %s",
		e.Account, e.Requested, e.Available)
}

// RateIncreaseError is returned when a new global rate exceeds the current
// one. The global rate only ever decreases.
type RateIncreaseError struct {
	Current   decimal.Decimal
	Attempted decimal.Decimal
}

func (e *RateIncreaseError) Error() string {
	return fmt.Sprintf("interest rate can only decrease: current %s, attempted %s",
		e.Current, e.Attempted)
}
