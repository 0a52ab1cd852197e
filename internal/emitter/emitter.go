// Package emitter hands finalized orders to the fulfillment pipeline with
// at-least-once delivery intent: Publish does not return nil until the
// transport has acknowledged the write.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yourorg/checkout-service/internal/checkout"
)

// messageWriter is the slice of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes orders to the fulfillment topic, keyed by order id so
// retried deliveries of the same order land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	delay  time.Duration
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher for the given comma-separated broker
// list and topic. delay is the optional artificial publish delay used to make
// asynchronous downstream effects observable in demos; it never affects
// correctness, only timing.
func NewKafkaPublisher(brokersCSV, topic string, delay time.Duration, logger *slog.Logger) *KafkaPublisher {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{writer: writer, delay: delay, logger: logger}
}

// Publish queues the order. The write blocks until the broker acknowledges;
// any error means the order is not durably queued and the checkout must not
// report success.
func (p *KafkaPublisher) Publish(ctx context.Context, order checkout.Order) error {
	if err := sleepCtx(ctx, p.delay); err != nil {
		return fmt.Errorf("emitter: cancelled before publish: %w", err)
	}

	value, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("emitter: failed to marshal order: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.OrderID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("emitter: failed to publish order %s: %w", order.OrderID, err)
	}

	p.logger.Info("order queued", "orderid", order.OrderID, "user", order.UserID)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// sleepCtx waits for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogPublisher is the degraded-mode publisher wired when no brokers are
// configured: it logs the order instead of queueing it. Demo use only; the
// startup log makes the degradation explicit.
type LogPublisher struct {
	delay  time.Duration
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(delay time.Duration, logger *slog.Logger) *LogPublisher {
	return &LogPublisher{delay: delay, logger: logger}
}

// Publish logs the order and reports success.
func (p *LogPublisher) Publish(ctx context.Context, order checkout.Order) error {
	if err := sleepCtx(ctx, p.delay); err != nil {
		return fmt.Errorf("emitter: cancelled before publish: %w", err)
	}
	p.logger.Info("order queued (log only, no brokers configured)",
		"orderid", order.OrderID, "user", order.UserID, "total", order.Cart.Total)
	return nil
}
