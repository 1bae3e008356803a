package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topics events are published under.
const (
	TopicLedger  = "ledger_events"
	TopicReserve = "reserve_events"
	TopicBridge  = "bridge_events"
)

type Minted struct {
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Burned struct {
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Transferred struct {
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type Deposit struct {
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Redeem struct {
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type BridgeTransferInitiated struct {
	TransferID         string          `json:"transfer_id"`
	Sender             string          `json:"sender"`
	Recipient          string          `json:"recipient"`
	Amount             decimal.Decimal `json:"amount"`
	SenderInterestRate decimal.Decimal `json:"sender_interest_rate"`
	SourceChainID      uint64          `json:"source_chain_id"`
	DestinationChainID uint64          `json:"destination_chain_id"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

type BridgeTransferDelivered struct {
	TransferID    string          `json:"transfer_id"`
	Recipient     string          `json:"recipient"`
	Amount        decimal.Decimal `json:"amount"`
	SourceChainID uint64          `json:"source_chain_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
