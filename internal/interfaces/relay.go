package interfaces

import (
	"context"

	"github.com/vb-2003/rebase-ledger/internal/models"
)

// Relay carries burn events from one ledger instance to another. Delivery is
// at-least-once and order-preserving per sender; liveness is the relay's
// problem, not the pools'.
type Relay interface {
	Send(ctx context.Context, msg models.BridgeMessage) error
}

// InboundReceiver is the destination side of a relay: the pool that mints.
type InboundReceiver interface {
	ReceiveInbound(ctx context.Context, msg models.BridgeMessage) error
}
