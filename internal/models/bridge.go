package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BridgeMessage is the wire payload carried by the relay from the pool that
// burned the tokens to the pool that will mint them.
type BridgeMessage struct {
	ID                 string          `json:"id"`
	Amount             decimal.Decimal `json:"amount"`
	Recipient          string          `json:"recipient"`
	SenderInterestRate decimal.Decimal `json:"sender_interest_rate"`
	SourcePool         string          `json:"source_pool"`
	SourceChainID      uint64          `json:"source_chain_id"`
	DestinationChainID uint64          `json:"destination_chain_id"`
}

// LimiterConfig configures one token bucket (one direction of one route).
// A disabled bucket admits everything.
type LimiterConfig struct {
	Enabled         bool    `json:"enabled"`
	Capacity        int64   `json:"capacity"`
	RefillPerSecond float64 `json:"refill_per_second"`
}

// RouteUpdate describes one remote chain a pool is allowed to talk to.
type RouteUpdate struct {
	RemoteChainID   uint64        `json:"remote_chain_id"`
	RemotePool      string        `json:"remote_pool"`
	RemoteToken     string        `json:"remote_token"`
	OutboundLimiter LimiterConfig `json:"outbound_limiter"`
	InboundLimiter  LimiterConfig `json:"inbound_limiter"`
}

// TransferStatus tracks a bridge transfer through its lifecycle. There is no
// rollback status: a burn on the source ledger is irreversible and delivery
// is the relay's liveness obligation.
type TransferStatus string

const (
	TransferStatusCreated   TransferStatus = "created"   // burn committed on the source ledger
	TransferStatusInFlight  TransferStatus = "in_flight" // handed to the relay
	TransferStatusDelivered TransferStatus = "delivered" // mint committed on the destination ledger
)

// Transfer is a pool's local record of one cross-chain move.
type Transfer struct {
	ID        string
	Message   BridgeMessage
	Status    TransferStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
