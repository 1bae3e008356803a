// Package reserve implements the vault that converts external native value
// into ledger balance and back.
package reserve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/ledger"
	"github.com/vb-2003/rebase-ledger/internal/models/events"
)

// ErrRedemptionTransferFailed is returned when the outbound value transfer
// after a burn does not succeed. The burn is rolled back; the redemption
// fails as one unit.
var ErrRedemptionTransferFailed = errors.New("redemption transfer failed")

// ValueMover is the external custodian of native value backing the ledger.
type ValueMover interface {
	// Deposit takes custody of value arriving from an account.
	Deposit(ctx context.Context, from string, amount decimal.Decimal) error
	// Withdraw pays value out of custody to an account.
	Withdraw(ctx context.Context, to string, amount decimal.Decimal) error
}

// Vault is the reserve entry point. It holds the mint/burn capability under
// its own identity and never touches account state except through the ledger.
type Vault struct {
	ledger *ledger.Ledger
	mover  ValueMover
	events interfaces.EventPublisher
	log    *logrus.Logger
	self   string // capability identity used as the ledger caller
	now    func() time.Time
}

// Option configures a Vault.
type Option func(*Vault)

// WithEventPublisher wires an event publisher for Deposit/Redeem events.
func WithEventPublisher(p interfaces.EventPublisher) Option {
	return func(v *Vault) { v.events = p }
}

// WithClock overrides the timestamp source used for event payloads.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// WithLogger overrides the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(v *Vault) { v.log = log }
}

// New creates a vault acting on the ledger under the identity self. The
// owner must grant self the mint/burn role before the vault can operate.
func New(l *ledger.Ledger, mover ValueMover, self string, opts ...Option) *Vault {
	v := &Vault{
		ledger: l,
		mover:  mover,
		log:    logrus.StandardLogger(),
		self:   self,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Identity returns the capability identity the vault uses on the ledger.
func (v *Vault) Identity() string {
	return v.self
}

// Deposit accepts native value from caller and mints the same amount at the
// current global rate. No value is accepted if the mint fails.
func (v *Vault) Deposit(ctx context.Context, caller string, value decimal.Decimal) error {
	if err := v.mover.Deposit(ctx, caller, value); err != nil {
		return fmt.Errorf("accept deposit value: %w", err)
	}

	if err := v.ledger.Mint(ctx, v.self, caller, value, v.ledger.InterestRate()); err != nil {
		// Hand the value back; the deposit fails as one unit.
		if refundErr := v.mover.Withdraw(ctx, caller, value); refundErr != nil {
			v.log.WithError(refundErr).WithField("account", caller).Error("deposit refund failed")
		}
		return err
	}

	v.publish(events.TopicReserve, events.Deposit{Account: caller, Amount: value, OccurredAt: v.now()})
	return nil
}

// Redeem burns amount from caller's balance and pays out the same native
// value. ledger.EntireBalance redeems the full settled balance. The burn and
// the payout succeed or fail together: a failed payout triggers a
// compensating mint restoring the pre-burn state.
func (v *Vault) Redeem(ctx context.Context, caller string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Equal(ledger.EntireBalance) {
		balance, err := v.ledger.BalanceOf(ctx, caller)
		if err != nil {
			return decimal.Zero, err
		}
		amount = balance
	}

	if err := v.ledger.Burn(ctx, v.self, caller, amount); err != nil {
		return decimal.Zero, err
	}

	if err := v.mover.Withdraw(ctx, caller, amount); err != nil {
		// Compensating mint. The account still exists, so its locked rate
		// is untouched and the hint below is ignored.
		rate, rateErr := v.ledger.UserInterestRate(ctx, caller)
		if rateErr != nil {
			rate = v.ledger.InterestRate()
		}
		if mintErr := v.ledger.Mint(ctx, v.self, caller, amount, rate); mintErr != nil {
			v.log.WithError(mintErr).WithField("account", caller).Error("redemption rollback failed")
		}
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRedemptionTransferFailed, err)
	}

	v.publish(events.TopicReserve, events.Redeem{Account: caller, Amount: amount, OccurredAt: v.now()})
	return amount, nil
}

func (v *Vault) publish(topic string, event any) {
	if v.events == nil {
		return
	}
	if err := v.events.Publish(topic, event); err != nil {
		v.log.WithError(err).WithField("topic", topic).Warn("event publish failed")
	}
}
