// Package kafka provides a Kafka-backed relay. Each destination chain gets
// its own topic; Kafka's per-partition ordering supplies the relay's
// order-preserving-per-sender guarantee, and consumer-group redelivery makes
// it at-least-once.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/models"
)

// TopicForChain names the bridge topic for one destination chain.
func TopicForChain(chainID uint64) string {
	return fmt.Sprintf("bridge_transfers_%d", chainID)
}

// Producer is the sending half of the relay.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer writing to the given brokers. Topics are
// chosen per message from its destination chain.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Send publishes the message to the destination chain's topic, keyed by the
// source pool so one sender's messages stay on one partition, in order.
func (p *Producer) Send(ctx context.Context, msg models.BridgeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: TopicForChain(msg.DestinationChainID),
		Key:   []byte(msg.SourcePool),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// defaultRetryDelay paces redelivery attempts for a message the pool
// rejected, e.g. while an inbound rate limit refills.
const defaultRetryDelay = 5 * time.Second

// Consumer is the receiving half of the relay: it reads the local chain's
// topic and feeds each message to the pool.
type Consumer struct {
	reader     *kafka.Reader
	receiver   interfaces.InboundReceiver
	log        *logrus.Logger
	retryDelay time.Duration
}

// NewConsumer creates a consumer for localChainID's bridge topic.
func NewConsumer(brokers []string, localChainID uint64, receiver interfaces.InboundReceiver, log *logrus.Logger) *Consumer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: fmt.Sprintf("bridge_pool_%d", localChainID),
			Topic:   TopicForChain(localChainID),
		}),
		receiver:   receiver,
		log:        log,
		retryDelay: defaultRetryDelay,
	}
}

// Run consumes until the context is canceled. A message is committed only
// after the pool has accepted it; delivery failures retry the same message
// in place so the group offset never moves past an undelivered burn.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var msg models.BridgeMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.WithError(err).Warn("dropping undecodable bridge message")
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				return err
			}
			continue
		}

		if err := c.deliver(ctx, msg); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return err
		}
	}
}

// deliver hands the message to the pool, retrying until it is accepted or
// the context ends. The source chain has already burned this amount, so the
// mint must not be skipped; the pool's duplicate guard makes the retries
// safe against redelivery after a crash.
func (c *Consumer) deliver(ctx context.Context, msg models.BridgeMessage) error {
	for {
		err := c.receiver.ReceiveInbound(ctx, msg)
		if err == nil {
			return nil
		}
		c.log.WithError(err).WithField("transfer_id", msg.ID).Error("inbound delivery failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

var _ interfaces.Relay = (*Producer)(nil)
