// Package ledger implements an interest-accruing balance ledger. Each
// account carries a per-second interest rate locked at creation; the global
// rate applies only to accounts created after it was set and never increases.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vb-2003/rebase-ledger/internal/accrual"
	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/models"
	"github.com/vb-2003/rebase-ledger/internal/models/events"
)

// EntireBalance is the transfer/redeem sentinel meaning "the full settled
// balance of the debited account".
var EntireBalance = decimal.NewFromInt(-1)

// Ledger holds per-account state and the global rate for one instance.
// Mutating operations are serialized by a single mutex and either complete
// all their writes or fail before persisting anything.
type Ledger struct {
	store  interfaces.AccountStore
	events interfaces.EventPublisher
	log    *logrus.Logger

	mu         sync.Mutex
	owner      string
	minters    map[string]struct{}
	globalRate decimal.Decimal
	now        func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithEventPublisher wires an event publisher; publish failures are logged,
// never propagated.
func WithEventPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.events = p }
}

// WithClock overrides the timestamp source. The host clock is assumed
// monotonically non-decreasing.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger overrides the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// New creates a ledger owned by owner, assigning globalRate to accounts
// created by direct deposit.
func New(store interfaces.AccountStore, owner string, globalRate decimal.Decimal, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		log:        logrus.StandardLogger(),
		owner:      owner,
		minters:    make(map[string]struct{}),
		globalRate: globalRate,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GrantMintAndBurnRole authorizes principal to call Mint and Burn.
// Owner-gated.
func (l *Ledger) GrantMintAndBurnRole(caller, principal string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return ErrUnauthorized
	}
	l.minters[principal] = struct{}{}
	return nil
}

// SetInterestRate lowers the global rate assigned to newly created accounts.
// Increases are rejected; existing accounts keep their locked rate either way.
func (l *Ledger) SetInterestRate(caller string, newRate decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return ErrUnauthorized
	}
	if newRate.GreaterThan(l.globalRate) {
		return &RateIncreaseError{Current: l.globalRate.Copy(), Attempted: newRate}
	}
	l.globalRate = newRate
	return nil
}

// InterestRate returns the current global rate.
func (l *Ledger) InterestRate() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.globalRate.Copy()
}

// UserInterestRate returns the rate locked on an account. Unknown accounts
// report zero.
func (l *Ledger) UserInterestRate(ctx context.Context, address string) (decimal.Decimal, error) {
	acct, ok, err := l.store.Get(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return acct.Rate, nil
}

// Mint credits amount to an account. A brand new account locks its rate to
// rateHint; an existing account, even one dormant at zero principal, keeps
// its locked rate and the hint is ignored. Capability-gated.
func (l *Ledger) Mint(ctx context.Context, caller, address string, amount, rateHint decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.canMintAndBurn(caller) {
		return ErrUnauthorized
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	now := l.now()
	acct, ok, err := l.store.Get(ctx, address)
	if err != nil {
		return err
	}
	if !ok {
		acct = models.Account{Address: address, Principal: decimal.Zero, Rate: rateHint, LastUpdate: now}
	} else {
		acct = acct.Clone()
		accrual.Settle(&acct, now)
	}
	acct.Principal = acct.Principal.Add(amount)

	if err := l.store.Put(ctx, acct); err != nil {
		return err
	}
	l.publish(events.TopicLedger, events.Minted{Account: address, Amount: amount, Rate: acct.Rate, OccurredAt: now})
	return nil
}

// Burn debits amount from an account's settled balance. Capability-gated.
func (l *Ledger) Burn(ctx context.Context, caller, address string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.canMintAndBurn(caller) {
		return ErrUnauthorized
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	now := l.now()
	acct, ok, err := l.store.Get(ctx, address)
	if err != nil {
		return err
	}
	if !ok {
		return &InsufficientBalanceError{Account: address, Requested: amount, Available: decimal.Zero}
	}
	acct = acct.Clone()
	accrual.Settle(&acct, now)

	if amount.GreaterThan(acct.Principal) {
		return &InsufficientBalanceError{Account: address, Requested: amount, Available: acct.Principal}
	}
	acct.Principal = acct.Principal.Sub(amount)

	if err := l.store.Put(ctx, acct); err != nil {
		return err
	}
	l.publish(events.TopicLedger, events.Burned{Account: address, Amount: amount, OccurredAt: now})
	return nil
}

// Transfer moves amount from one account to another after settling both.
// EntireBalance moves the full settled balance. A recipient created by the
// transfer inherits the sender's locked rate, not the current global rate.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.Equal(EntireBalance) && !amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	now := l.now()
	src, ok, err := l.store.Get(ctx, from)
	if err != nil {
		return err
	}
	if !ok {
		src = models.Account{Address: from, Principal: decimal.Zero, Rate: decimal.Zero, LastUpdate: now}
	} else {
		src = src.Clone()
	}
	accrual.Settle(&src, now)

	if amount.Equal(EntireBalance) {
		amount = src.Principal
	}
	if amount.GreaterThan(src.Principal) {
		return &InsufficientBalanceError{Account: from, Requested: amount, Available: src.Principal}
	}
	if amount.IsZero() {
		// A vacuous transfer (the entire balance of an empty or never-used
		// account) must not create or persist any account record: accounts
		// are created on first mint, and a stored zero-rate record would
		// lock the address out of the global rate forever.
		return nil
	}

	if from == to {
		// Settlement still applies, the move itself is a no-op.
		if err := l.store.Put(ctx, src); err != nil {
			return err
		}
		l.publish(events.TopicLedger, events.Transferred{FromAccount: from, ToAccount: to, Amount: amount, OccurredAt: now})
		return nil
	}

	dst, ok, err := l.store.Get(ctx, to)
	if err != nil {
		return err
	}
	if !ok {
		dst = models.Account{Address: to, Principal: decimal.Zero, Rate: src.Rate, LastUpdate: now}
	} else {
		dst = dst.Clone()
		accrual.Settle(&dst, now)
	}

	src.Principal = src.Principal.Sub(amount)
	dst.Principal = dst.Principal.Add(amount)

	if err := l.store.Put(ctx, src, dst); err != nil {
		return err
	}
	l.publish(events.TopicLedger, events.Transferred{FromAccount: from, ToAccount: to, Amount: amount, OccurredAt: now})
	return nil
}

// BalanceOf returns principal plus interest accrued up to now. Read-only.
func (l *Ledger) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	acct, ok, err := l.store.Get(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return acct.Principal.Add(accrual.Accrued(acct, l.now())), nil
}

// PrincipalBalanceOf returns the stored principal only, unaffected by
// elapsed time. Read-only.
func (l *Ledger) PrincipalBalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	acct, ok, err := l.store.Get(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return acct.Principal, nil
}

func (l *Ledger) canMintAndBurn(caller string) bool {
	// Membership only; the owner grants the role but does not hold it
	// implicitly.
	_, ok := l.minters[caller]
	return ok
}

func (l *Ledger) publish(topic string, event any) {
	if l.events == nil {
		return
	}
	if err := l.events.Publish(topic, event); err != nil {
		l.log.WithError(err).WithField("topic", topic).Warn("event publish failed")
	}
}
