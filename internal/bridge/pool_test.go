package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vb-2003/rebase-ledger/internal/ledger"
	"github.com/vb-2003/rebase-ledger/internal/models"
	relaymem "github.com/vb-2003/rebase-ledger/internal/relay/memory"
	"github.com/vb-2003/rebase-ledger/internal/storage/memory"
)

const (
	owner  = "owner"
	minter = "minter"
	alice  = "alice"
	bob    = "bob"

	chainA uint64 = 1
	chainB uint64 = 2

	poolAddrA = "pool-a"
	poolAddrB = "pool-b"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// testBridge is a pair of ledgers on two chains joined by an in-memory relay.
type testBridge struct {
	clock   *testClock
	relay   *relaymem.Relay
	ledgerA *ledger.Ledger
	ledgerB *ledger.Ledger
	poolA   *Pool
	poolB   *Pool
}

func disabledLimiter() models.LimiterConfig {
	return models.LimiterConfig{Enabled: false}
}

func newTestBridge(t *testing.T, rateA, rateB string, outA, inB models.LimiterConfig) *testBridge {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	relay := relaymem.NewRelay()

	ledgerA := ledger.New(memory.NewAccountStore(), owner, decimal.RequireFromString(rateA), ledger.WithClock(clock.Now))
	ledgerB := ledger.New(memory.NewAccountStore(), owner, decimal.RequireFromString(rateB), ledger.WithClock(clock.Now))
	require.NoError(t, ledgerA.GrantMintAndBurnRole(owner, minter))
	require.NoError(t, ledgerB.GrantMintAndBurnRole(owner, minter))

	poolA := NewPool(chainA, poolAddrA, ledgerA, relay, owner, "pool", WithClock(clock.Now))
	poolB := NewPool(chainB, poolAddrB, ledgerB, relay, owner, "pool", WithClock(clock.Now))
	require.NoError(t, ledgerA.GrantMintAndBurnRole(owner, poolA.Identity()))
	require.NoError(t, ledgerB.GrantMintAndBurnRole(owner, poolB.Identity()))

	require.NoError(t, poolA.ApplyRouteUpdates(owner, nil, []models.RouteUpdate{{
		RemoteChainID:   chainB,
		RemotePool:      poolAddrB,
		RemoteToken:     "rebase-b",
		OutboundLimiter: outA,
		InboundLimiter:  disabledLimiter(),
	}}))
	require.NoError(t, poolB.ApplyRouteUpdates(owner, nil, []models.RouteUpdate{{
		RemoteChainID:   chainA,
		RemotePool:      poolAddrA,
		RemoteToken:     "rebase-a",
		OutboundLimiter: disabledLimiter(),
		InboundLimiter:  inB,
	}}))

	relay.Register(chainA, poolA)
	relay.Register(chainB, poolB)

	return &testBridge{
		clock:   clock,
		relay:   relay,
		ledgerA: ledgerA,
		ledgerB: ledgerB,
		poolA:   poolA,
		poolB:   poolB,
	}
}

func TestSendOutboundUnknownRoute(t *testing.T) {
	tb := newTestBridge(t, "0.0001", "0.0001", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	_, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(10), 999, bob)
	var unknown *UnknownRouteError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint64(999), unknown.ChainID)
}

func TestRoundTripPreservesAmountAndRate(t *testing.T) {
	tb := newTestBridge(t, "0.0001", "0.00001", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(1000), tb.ledgerA.InterestRate()))

	msg, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(400), chainB, bob)
	require.NoError(t, err)

	// Burned on A, nothing minted on B until the relay delivers.
	balanceA, err := tb.ledgerA.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, balanceA.Equal(decimal.NewFromInt(600)))

	balanceB, err := tb.ledgerB.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.True(t, balanceB.IsZero())

	rec, ok := tb.poolA.Transfer(msg.ID)
	require.True(t, ok)
	assert.Equal(t, models.TransferStatusInFlight, rec.Status)

	require.NoError(t, tb.relay.Flush(ctx))

	// Burned amount equals minted amount exactly.
	balanceB, err = tb.ledgerB.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.True(t, balanceB.Equal(decimal.NewFromInt(400)))

	// The newly created recipient inherits the sender's rate, not chain B's
	// lower global rate.
	rateB, err := tb.ledgerB.UserInterestRate(ctx, bob)
	require.NoError(t, err)
	assert.True(t, rateB.Equal(decimal.RequireFromString("0.0001")), "rate %s", rateB)

	recB, ok := tb.poolB.Transfer(msg.ID)
	require.True(t, ok)
	assert.Equal(t, models.TransferStatusDelivered, recB.Status)
}

func TestRoundTripKeepsExistingRecipientRate(t *testing.T) {
	tb := newTestBridge(t, "0.0001", "0.00001", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	// Bob already exists on chain B with its global rate locked.
	require.NoError(t, tb.ledgerB.Mint(ctx, minter, bob, decimal.NewFromInt(5), tb.ledgerB.InterestRate()))
	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(100), tb.ledgerA.InterestRate()))

	_, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(50), chainB, bob)
	require.NoError(t, err)
	require.NoError(t, tb.relay.Flush(ctx))

	rateB, err := tb.ledgerB.UserInterestRate(ctx, bob)
	require.NoError(t, err)
	assert.True(t, rateB.Equal(decimal.RequireFromString("0.00001")), "rate hint overrode locked rate")
}

func TestSendOutboundInsufficientBalanceBurnsNothing(t *testing.T) {
	tb := newTestBridge(t, "0", "0", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(10), tb.ledgerA.InterestRate()))

	_, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(20), chainB, bob)
	var insufficient *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)

	assert.Equal(t, 0, tb.relay.Pending(), "message relayed despite failed burn")
}

func TestReceiveInboundRejectsUnknownChain(t *testing.T) {
	tb := newTestBridge(t, "0", "0", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	err := tb.poolB.ReceiveInbound(ctx, models.BridgeMessage{
		ID:                 "msg-1",
		Amount:             decimal.NewFromInt(10),
		Recipient:          bob,
		SourcePool:         poolAddrA,
		SourceChainID:      999,
		DestinationChainID: chainB,
	})
	var unknown *UnknownRouteError
	require.ErrorAs(t, err, &unknown)
}

func TestReceiveInboundRejectsUnauthorizedPool(t *testing.T) {
	tb := newTestBridge(t, "0", "0", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	err := tb.poolB.ReceiveInbound(ctx, models.BridgeMessage{
		ID:                 "msg-1",
		Amount:             decimal.NewFromInt(10),
		Recipient:          bob,
		SourcePool:         "impostor",
		SourceChainID:      chainA,
		DestinationChainID: chainB,
	})
	require.ErrorIs(t, err, ErrUnauthorizedRemotePool)

	balanceB, berr := tb.ledgerB.BalanceOf(ctx, bob)
	require.NoError(t, berr)
	assert.True(t, balanceB.IsZero(), "unauthorized message minted funds")
}

func TestReceiveInboundIsIdempotent(t *testing.T) {
	tb := newTestBridge(t, "0", "0", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(100), tb.ledgerA.InterestRate()))

	msg, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(100), chainB, bob)
	require.NoError(t, err)
	require.NoError(t, tb.relay.Flush(ctx))

	// The relay is at-least-once; a second delivery must not double-mint.
	require.NoError(t, tb.poolB.ReceiveInbound(ctx, msg))

	balanceB, err := tb.ledgerB.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.True(t, balanceB.Equal(decimal.NewFromInt(100)), "balance %s", balanceB)
}

func TestReceiveInboundRejectsSpoofedDuplicateID(t *testing.T) {
	tb := newTestBridge(t, "0", "0", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(100), tb.ledgerA.InterestRate()))

	msg, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(100), chainB, bob)
	require.NoError(t, err)
	require.NoError(t, tb.relay.Flush(ctx))

	// Reusing a delivered id from an unauthenticated pool must fail, not be
	// acknowledged as a duplicate.
	spoofed := msg
	spoofed.SourcePool = "impostor"
	err = tb.poolB.ReceiveInbound(ctx, spoofed)
	require.ErrorIs(t, err, ErrUnauthorizedRemotePool)

	balanceB, berr := tb.ledgerB.BalanceOf(ctx, bob)
	require.NoError(t, berr)
	assert.True(t, balanceB.Equal(decimal.NewFromInt(100)))
}

func TestOutboundRateLimit(t *testing.T) {
	limited := models.LimiterConfig{Enabled: true, Capacity: 100, RefillPerSecond: 10}
	tb := newTestBridge(t, "0", "0", limited, disabledLimiter())
	ctx := context.Background()

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(1000), tb.ledgerA.InterestRate()))

	// First send drains the bucket; the second exceeds what is left.
	_, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(100), chainB, bob)
	require.NoError(t, err)

	_, err = tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(50), chainB, bob)
	var limitErr *RateLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, chainB, limitErr.ChainID)
	assert.Equal(t, DirectionOutbound, limitErr.Direction)
	assert.Equal(t, int64(50), limitErr.Requested)

	// The failed send burned nothing.
	balanceA, err := tb.ledgerA.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, balanceA.Equal(decimal.NewFromInt(900)))

	// Refill restores capacity: 10 tokens per second.
	tb.clock.Advance(5 * time.Second)
	_, err = tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(50), chainB, bob)
	require.NoError(t, err)
}

func TestInboundRateLimit(t *testing.T) {
	limited := models.LimiterConfig{Enabled: true, Capacity: 60, RefillPerSecond: 1}
	tb := newTestBridge(t, "0", "0", disabledLimiter(), limited)
	ctx := context.Background()

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(1000), tb.ledgerA.InterestRate()))

	_, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(100), chainB, bob)
	require.NoError(t, err)

	err = tb.relay.Flush(ctx)
	var limitErr *RateLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, DirectionInbound, limitErr.Direction)

	// The message stays queued for a later flush.
	assert.Equal(t, 1, tb.relay.Pending())
}

func TestApplyRouteUpdatesOwnerGated(t *testing.T) {
	tb := newTestBridge(t, "0", "0", disabledLimiter(), disabledLimiter())

	err := tb.poolA.ApplyRouteUpdates("stranger", []uint64{chainB}, nil)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	// The route survives the rejected update.
	ctx := context.Background()
	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(10), tb.ledgerA.InterestRate()))
	_, err = tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(10), chainB, bob)
	require.NoError(t, err)
}

func TestRouteRemovalTakesEffectImmediately(t *testing.T) {
	tb := newTestBridge(t, "0", "0", disabledLimiter(), disabledLimiter())
	ctx := context.Background()

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(10), tb.ledgerA.InterestRate()))
	require.NoError(t, tb.poolA.ApplyRouteUpdates(owner, []uint64{chainB}, nil))

	_, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(10), chainB, bob)
	var unknown *UnknownRouteError
	require.ErrorAs(t, err, &unknown)
}

func TestHighLimiterCapacityNotSharedAcrossRoutes(t *testing.T) {
	tb := newTestBridge(t, "0", "0",
		models.LimiterConfig{Enabled: true, Capacity: 100, RefillPerSecond: 1},
		disabledLimiter())
	ctx := context.Background()

	// A second route with its own bucket.
	const chainC uint64 = 3
	require.NoError(t, tb.poolA.ApplyRouteUpdates(owner, nil, []models.RouteUpdate{{
		RemoteChainID:   chainC,
		RemotePool:      "pool-c",
		RemoteToken:     "rebase-c",
		OutboundLimiter: models.LimiterConfig{Enabled: true, Capacity: 100, RefillPerSecond: 1},
		InboundLimiter:  disabledLimiter(),
	}}))
	tb.relay.Register(chainC, tb.poolB) // destination unused; sends only

	require.NoError(t, tb.ledgerA.Mint(ctx, minter, alice, decimal.NewFromInt(1000), tb.ledgerA.InterestRate()))

	// Drain chain B's bucket.
	_, err := tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(100), chainB, bob)
	require.NoError(t, err)

	// Chain C's bucket is untouched.
	_, err = tb.poolA.SendOutbound(ctx, alice, decimal.NewFromInt(100), chainC, bob)
	require.NoError(t, err)
}
