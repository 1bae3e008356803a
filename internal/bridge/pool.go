// Package bridge implements the per-chain pool adapter that turns local
// burns into outbound relay messages and inbound relay messages into local
// mints. Two pools on two ledgers share no transaction; consistency between
// them is eventual and relay-dependent.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/ledger"
	"github.com/vb-2003/rebase-ledger/internal/models"
	"github.com/vb-2003/rebase-ledger/internal/models/events"
)

type route struct {
	remotePool  string
	remoteToken string
	outbound    *routeLimiter
	inbound     *routeLimiter
}

// Pool is one chain's bridge adapter for one token. It trusts only messages
// from a pre-registered (remote chain, remote pool) pair and has no
// authority over accounts outside its own ledger.
type Pool struct {
	chainID   uint64
	localAddr string
	ledger    *ledger.Ledger
	relay     interfaces.Relay
	events    interfaces.EventPublisher
	log       *logrus.Logger
	owner     string
	self      string // capability identity used as the ledger caller
	now       func() time.Time

	mu        sync.Mutex
	routes    map[uint64]*route
	transfers map[string]*models.Transfer
}

// Option configures a Pool.
type Option func(*Pool)

// WithEventPublisher wires an event publisher for bridge transfer events.
func WithEventPublisher(p interfaces.EventPublisher) Option {
	return func(b *Pool) { b.events = p }
}

// WithClock overrides the timestamp source, shared with the rate limiters.
func WithClock(now func() time.Time) Option {
	return func(b *Pool) { b.now = now }
}

// WithLogger overrides the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(b *Pool) { b.log = log }
}

// NewPool creates the adapter for chainID, acting on l under the identity
// self. localAddr is the address remote pools authenticate against.
func NewPool(chainID uint64, localAddr string, l *ledger.Ledger, relay interfaces.Relay, owner, self string, opts ...Option) *Pool {
	b := &Pool{
		chainID:   chainID,
		localAddr: localAddr,
		ledger:    l,
		relay:     relay,
		log:       logrus.StandardLogger(),
		owner:     owner,
		self:      self,
		now:       time.Now,
		routes:    make(map[uint64]*route),
		transfers: make(map[string]*models.Transfer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Identity returns the capability identity the pool uses on its ledger.
func (b *Pool) Identity() string {
	return b.self
}

// ChainID returns the local chain id.
func (b *Pool) ChainID() uint64 {
	return b.chainID
}

// ApplyRouteUpdates removes then adds routes. Owner-gated; changes take
// effect immediately. Adding a chain id that already has a route replaces it,
// resetting its limiters.
func (b *Pool) ApplyRouteUpdates(caller string, removes []uint64, adds []models.RouteUpdate) error {
	if caller != b.owner {
		return ledger.ErrUnauthorized
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, chainID := range removes {
		delete(b.routes, chainID)
	}
	for _, add := range adds {
		b.routes[add.RemoteChainID] = &route{
			remotePool:  add.RemotePool,
			remoteToken: add.RemoteToken,
			outbound:    newRouteLimiter(add.OutboundLimiter),
			inbound:     newRouteLimiter(add.InboundLimiter),
		}
	}
	return nil
}

// SendOutbound burns amount from sender on the local ledger and hands the
// relay a message instructing the remote pool to mint it for remoteRecipient
// at the sender's locked rate. The burn is irreversible once committed;
// delivery is the relay's obligation.
func (b *Pool) SendOutbound(ctx context.Context, sender string, amount decimal.Decimal, remoteChainID uint64, remoteRecipient string) (models.BridgeMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rt, ok := b.routes[remoteChainID]
	if !ok {
		return models.BridgeMessage{}, &UnknownRouteError{ChainID: remoteChainID}
	}

	now := b.now()
	if !rt.outbound.allow(now, amount) {
		return models.BridgeMessage{}, &RateLimitError{ChainID: remoteChainID, Direction: DirectionOutbound, Requested: tokensFor(amount)}
	}

	senderRate, err := b.ledger.UserInterestRate(ctx, sender)
	if err != nil {
		return models.BridgeMessage{}, err
	}

	if err := b.ledger.Burn(ctx, b.self, sender, amount); err != nil {
		return models.BridgeMessage{}, err
	}

	msg := models.BridgeMessage{
		ID:                 uuid.New().String(),
		Amount:             amount,
		Recipient:          remoteRecipient,
		SenderInterestRate: senderRate,
		SourcePool:         b.localAddr,
		SourceChainID:      b.chainID,
		DestinationChainID: remoteChainID,
	}

	rec := &models.Transfer{
		ID:        msg.ID,
		Message:   msg,
		Status:    models.TransferStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.transfers[msg.ID] = rec

	if err := b.relay.Send(ctx, msg); err != nil {
		// The burn is already committed; the transfer stays Created until a
		// later resend. There is no rollback path from here.
		return msg, fmt.Errorf("relay send: %w", err)
	}
	rec.Status = models.TransferStatusInFlight
	rec.UpdatedAt = b.now()

	b.publish(events.TopicBridge, events.BridgeTransferInitiated{
		TransferID:         msg.ID,
		Sender:             sender,
		Recipient:          remoteRecipient,
		Amount:             amount,
		SenderInterestRate: senderRate,
		SourceChainID:      b.chainID,
		DestinationChainID: remoteChainID,
		OccurredAt:         now,
	})
	return msg, nil
}

// ReceiveInbound mints the message's amount for its recipient, preserving
// the sender's locked rate across the chain boundary exactly as an
// intra-ledger transfer would.
func (b *Pool) ReceiveInbound(ctx context.Context, msg models.BridgeMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rt, ok := b.routes[msg.SourceChainID]
	if !ok {
		return &UnknownRouteError{ChainID: msg.SourceChainID}
	}
	if rt.remotePool != msg.SourcePool {
		return fmt.Errorf("%w: chain %d pool %s", ErrUnauthorizedRemotePool, msg.SourceChainID, msg.SourcePool)
	}

	// The relay delivers at least once; an authenticated message already
	// delivered here is acknowledged without minting again. The check runs
	// after authentication so a spoofed sender reusing a delivered id is
	// rejected, not acked.
	if rec, ok := b.transfers[msg.ID]; ok && rec.Status == models.TransferStatusDelivered {
		return nil
	}

	now := b.now()
	if !rt.inbound.allow(now, msg.Amount) {
		return &RateLimitError{ChainID: msg.SourceChainID, Direction: DirectionInbound, Requested: tokensFor(msg.Amount)}
	}

	if err := b.ledger.Mint(ctx, b.self, msg.Recipient, msg.Amount, msg.SenderInterestRate); err != nil {
		return err
	}

	b.transfers[msg.ID] = &models.Transfer{
		ID:        msg.ID,
		Message:   msg,
		Status:    models.TransferStatusDelivered,
		CreatedAt: now,
		UpdatedAt: now,
	}

	b.publish(events.TopicBridge, events.BridgeTransferDelivered{
		TransferID:    msg.ID,
		Recipient:     msg.Recipient,
		Amount:        msg.Amount,
		SourceChainID: msg.SourceChainID,
		OccurredAt:    now,
	})
	return nil
}

// Transfer returns this pool's record of a transfer id, if it has one.
func (b *Pool) Transfer(id string) (models.Transfer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.transfers[id]
	if !ok {
		return models.Transfer{}, false
	}
	return *rec, true
}

func (b *Pool) publish(topic string, event any) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(topic, event); err != nil {
		b.log.WithError(err).WithField("topic", topic).Warn("event publish failed")
	}
}

var _ interfaces.InboundReceiver = (*Pool)(nil)
