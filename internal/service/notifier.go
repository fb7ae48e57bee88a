package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventSegmentationCompleted is published after segments were rewritten.
const EventSegmentationCompleted = "segmentation.completed"

// SegmentationEvent describes one finished segmentation run.
type SegmentationEvent struct {
	Type         string         `json:"type"`
	UserID       string         `json:"user_id"`
	UploadID     string         `json:"upload_id,omitempty"`
	Customers    int            `json:"customers"`
	Transactions int            `json:"transactions"`
	Segments     map[string]int `json:"segments"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Notifier publishes segmentation events. Failures are reported to the
// caller but must never undo a completed run.
type Notifier interface {
	Notify(ctx context.Context, event SegmentationEvent) error
	Close() error
}

type noopNotifier struct{}

// NewNoopNotifier returns a notifier that drops every event.
func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) Notify(context.Context, SegmentationEvent) error { return nil }
func (noopNotifier) Close() error                                   { return nil }

// AMQPNotifier publishes events as JSON on a fanout exchange.
type AMQPNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPNotifier dials the broker and declares the exchange.
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange}, nil
}

// Notify publishes the event. An amqp channel must not be shared by
// concurrent publishers.
func (n *AMQPNotifier) Notify(ctx context.Context, event SegmentationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn.IsClosed() {
		return fmt.Errorf("broker connection is closed")
	}

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
