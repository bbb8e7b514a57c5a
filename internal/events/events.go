// Package events publishes booking lifecycle events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingBookingConfirmed is the routing key of BookingConfirmed events.
const RoutingBookingConfirmed = "booking.confirmed"

// Publisher sends JSON events.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// BookingConfirmed is emitted after a booking is committed.
type BookingConfirmed struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		Date      string   `json:"date"`
		Slots     []string `json:"slots"`
		PaymentID string   `json:"payment_id"`
		OrderID   string   `json:"order_id"`
		Row       int      `json:"row"`
	} `json:"data"`
}

// NewBookingConfirmed builds the event payload.
func NewBookingConfirmed(at time.Time, date string, slots []string, paymentID, orderID string, row int) BookingConfirmed {
	ev := BookingConfirmed{
		Event:      RoutingBookingConfirmed,
		Version:    1,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
	ev.Data.Date = date
	ev.Data.Slots = slots
	ev.Data.PaymentID = paymentID
	ev.Data.OrderID = orderID
	ev.Data.Row = row
	return ev
}

// Noop discards events.
type Noop struct{}

// PublishJSON implements Publisher.
func (Noop) PublishJSON(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// AMQPPublisher publishes to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON implements Publisher.
func (p *AMQPPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	})
}

// Close implements Publisher.
func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
