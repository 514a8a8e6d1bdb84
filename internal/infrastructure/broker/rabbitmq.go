package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"inventory-service/internal/config"
)

// confirmTimeout bounds how long a publish waits for the broker ack before
// it is reported as failed. The outbox keeps the row PENDING on failure, so
// a timeout here means a retry on the next drain, never a lost event.
const confirmTimeout = 5 * time.Second

// Broker owns the RabbitMQ connection and the publisher channel. Consumers
// open their own channels (one per worker, long-lived) via Channel().
//
// Topology: two durable topic exchanges, one for domain events and one for
// commands, plus a dead-letter exchange. Queues carry the DLX argument so a
// rejected message lands in the dead-letter queue instead of vanishing.
type Broker struct {
	Config config.BrokerConfig

	conn    *amqp.Connection
	pubChan *amqp.Channel

	// pubMu serializes publishes so each confirmation on confirms belongs
	// to the publish that is currently waiting for it.
	pubMu    sync.Mutex
	confirms <-chan amqp.Confirmation
}

func NewBroker(cfg config.BrokerConfig) *Broker {
	return &Broker{Config: cfg}
}

// Connect dials the broker and opens the publisher channel in confirm mode.
// A publish only counts as delivered once the broker acks it; a buffered
// write lost to a dying connection surfaces as an error instead of
// silently disappearing.
func (b *Broker) Connect() error {
	conn, err := amqp.Dial(b.Config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open publisher channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	b.conn = conn
	b.pubChan = ch
	b.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	log.Info().Str("component", "broker").Msg("broker connected")
	return nil
}

// DeclareTopology declares exchanges, queues and bindings. Declarations are
// idempotent, so every process declares the full topology at startup.
func (b *Broker) DeclareTopology() error {
	ch := b.pubChan

	for _, exchange := range []string{b.Config.EventsExchange, b.Config.CommandsExchange, b.Config.DeadLetterExchange} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("exchange declare %s: %w", exchange, err)
		}
	}

	// Dead-letter queue catches everything routed to the DLX.
	if _, err := ch.QueueDeclare(b.Config.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", b.Config.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(b.Config.DeadLetterQueue, "#", b.Config.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", b.Config.DeadLetterQueue, err)
	}

	dlxArgs := amqp.Table{"x-dead-letter-exchange": b.Config.DeadLetterExchange}

	// Outbound mirror queue: allocation and release events.
	if _, err := ch.QueueDeclare(b.Config.OutboundQueue, true, false, false, false, dlxArgs); err != nil {
		return fmt.Errorf("queue declare %s: %w", b.Config.OutboundQueue, err)
	}
	for _, key := range []string{"inventory.InventoryAllocated", "inventory.InventoryReleased"} {
		if err := ch.QueueBind(b.Config.OutboundQueue, key, b.Config.EventsExchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s %s: %w", b.Config.OutboundQueue, key, err)
		}
	}

	// Reconciliation command queue.
	if _, err := ch.QueueDeclare(b.Config.SyncQueue, true, false, false, false, dlxArgs); err != nil {
		return fmt.Errorf("queue declare %s: %w", b.Config.SyncQueue, err)
	}
	if err := ch.QueueBind(b.Config.SyncQueue, "wms.forceSync", b.Config.CommandsExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", b.Config.SyncQueue, err)
	}

	return nil
}

// Publish sends a persistent JSON message and waits for the broker confirm.
// messageID carries the outbox event id so downstream consumers can
// deduplicate.
func (b *Broker) Publish(ctx context.Context, exchange, routingKey, messageID string, body []byte) error {
	if b.pubChan == nil {
		return fmt.Errorf("broker not connected")
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	err := b.pubChan.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    messageID,
	})
	if err != nil {
		return err
	}

	return awaitConfirm(ctx, b.confirms, confirmTimeout)
}

// awaitConfirm blocks until the broker acks or nacks the in-flight publish.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case conf, ok := <-confirms:
		if !ok {
			return fmt.Errorf("publisher channel closed before confirm")
		}
		if !conf.Ack {
			return fmt.Errorf("broker nacked publish (delivery tag %d)", conf.DeliveryTag)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("timed out waiting for publish confirm")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishEvent publishes a domain event keyed inventory.<eventType>.
func (b *Broker) PublishEvent(ctx context.Context, eventType, messageID string, body []byte) error {
	return b.Publish(ctx, b.Config.EventsExchange, "inventory."+eventType, messageID, body)
}

// PublishCommand publishes to the commands exchange.
func (b *Broker) PublishCommand(ctx context.Context, routingKey, messageID string, body []byte) error {
	return b.Publish(ctx, b.Config.CommandsExchange, routingKey, messageID, body)
}

// Channel opens a dedicated channel for a consumer with its prefetch cap.
func (b *Broker) Channel(prefetch int) (*amqp.Channel, error) {
	if b.conn == nil {
		return nil, fmt.Errorf("broker not connected")
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	return ch, nil
}

// HealthCheck reports whether the connection is alive.
func (b *Broker) HealthCheck() error {
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("broker connection closed")
	}
	return nil
}

func (b *Broker) Close() {
	if b.pubChan != nil {
		b.pubChan.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
