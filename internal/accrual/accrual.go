// Package accrual computes simple (linear) interest for ledger accounts.
package accrual

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vb-2003/rebase-ledger/internal/models"
)

// Accrued returns the interest owed since the account's last settlement:
// principal × rate × elapsed seconds. It is zero when now is at or before
// LastUpdate, never negative, and never compounds between settlements.
func Accrued(acct models.Account, now time.Time) decimal.Decimal {
	elapsed := now.Sub(acct.LastUpdate)
	if elapsed <= 0 {
		return decimal.Zero
	}
	// Millisecond precision keeps the arithmetic exact in decimal; host
	// timestamps are coarse-grained anyway.
	seconds := decimal.New(elapsed.Milliseconds(), -3)
	return acct.Principal.Mul(acct.Rate).Mul(seconds)
}

// Settle folds accrued interest into principal and advances LastUpdate.
// This is the only place principal grows by interest; every mutating ledger
// operation settles each account it touches before applying its own delta.
func Settle(acct *models.Account, now time.Time) {
	owed := Accrued(*acct, now)
	if owed.IsPositive() {
		acct.Principal = acct.Principal.Add(owed)
	}
	if now.After(acct.LastUpdate) {
		acct.LastUpdate = now
	}
}
