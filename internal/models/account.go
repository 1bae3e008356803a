package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-ledger record for one principal identity.
type Account struct {
	Address    string          // principal identity, one account per ledger instance
	Principal  decimal.Decimal // balance excluding interest accrued since LastUpdate
	Rate       decimal.Decimal // per-second simple interest rate, locked at creation
	LastUpdate time.Time       // timestamp of the last settlement
}

// Clone returns a copy safe to mutate without touching stored state.
func (a Account) Clone() Account {
	return Account{
		Address:    a.Address,
		Principal:  a.Principal.Copy(),
		Rate:       a.Rate.Copy(),
		LastUpdate: a.LastUpdate,
	}
}
