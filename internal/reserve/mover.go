package reserve

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryMover is an in-process ValueMover tracking a single pot of native
// value. Withdrawals beyond the pot fail, which models an underfunded
// reserve: accrued interest is only payable once someone funds it.
type MemoryMover struct {
	mu  sync.Mutex
	pot decimal.Decimal
}

// NewMemoryMover creates a mover with an empty pot.
func NewMemoryMover() *MemoryMover {
	return &MemoryMover{pot: decimal.Zero}
}

// Fund adds native value to the pot without minting anything, e.g. interest
// funding by the reserve operator.
func (m *MemoryMover) Fund(amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pot = m.pot.Add(amount)
}

// Balance returns the current pot.
func (m *MemoryMover) Balance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pot.Copy()
}

func (m *MemoryMover) Deposit(ctx context.Context, from string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit value must be positive, got %s", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pot = m.pot.Add(amount)
	return nil
}

func (m *MemoryMover) Withdraw(ctx context.Context, to string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount.GreaterThan(m.pot) {
		return fmt.Errorf("reserve underfunded: need %s, have %s", amount, m.pot)
	}
	m.pot = m.pot.Sub(amount)
	return nil
}

var _ ValueMover = (*MemoryMover)(nil)
