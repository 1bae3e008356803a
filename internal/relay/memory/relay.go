// Package memory provides an in-process relay joining two pools in one
// binary. Messages queue in send order and are delivered on Flush, so tests
// can observe the window where a burn is committed but the mint is not.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/models"
)

// Relay is a FIFO in-memory relay.
type Relay struct {
	mu        sync.Mutex
	queue     []models.BridgeMessage
	receivers map[uint64]interfaces.InboundReceiver
}

// NewRelay creates an empty relay with no registered receivers.
func NewRelay() *Relay {
	return &Relay{
		receivers: make(map[uint64]interfaces.InboundReceiver),
	}
}

// Register wires the receiving pool for a chain id.
func (r *Relay) Register(chainID uint64, receiver interfaces.InboundReceiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receivers[chainID] = receiver
}

// Send enqueues a message. Delivery happens later, on Flush.
func (r *Relay) Send(ctx context.Context, msg models.BridgeMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, msg)
	return nil
}

// Pending returns the number of undelivered messages.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Flush delivers every queued message in order. A failed delivery keeps the
// message at the head of the queue and stops the flush, preserving per-sender
// ordering for the retry.
func (r *Relay) Flush(ctx context.Context) error {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.mu.Unlock()
			return nil
		}
		msg := r.queue[0]
		receiver, ok := r.receivers[msg.DestinationChainID]
		r.mu.Unlock()

		if !ok {
			return fmt.Errorf("no receiver registered for chain %d", msg.DestinationChainID)
		}
		if err := receiver.ReceiveInbound(ctx, msg); err != nil {
			return fmt.Errorf("deliver message %s: %w", msg.ID, err)
		}

		r.mu.Lock()
		r.queue = r.queue[1:]
		r.mu.Unlock()
	}
}

var _ interfaces.Relay = (*Relay)(nil)
