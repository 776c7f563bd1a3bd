// Package notify publishes scheduled meetings to RabbitMQ.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"

	"meeting-scheduler/internal/app"
)

const MIMEApplicationJSON = "application/json"

// Channel is the part of *amqp091.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher sends every scheduled meeting to an exchange as JSON.
type Publisher struct {
	channel    Channel
	exchange   string
	routingKey string
}

func NewPublisher(ch Channel, exchange, routingKey string) *Publisher {
	if routingKey == "" {
		routingKey = "meeting.scheduled"
	}
	return &Publisher{channel: ch, exchange: exchange, routingKey: routingKey}
}

func (p *Publisher) Notify(ctx context.Context, result app.SchedulingResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  MIMEApplicationJSON,
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    result.RequestID,
		Timestamp:    time.Now(),
		Type:         "meeting.scheduled",
		Headers: amqp091.Table{
			"message_type": "JSON",
		},
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Connection owns the AMQP connection and channel behind a Publisher.
type Connection struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

// Dial connects to url and declares exchange as a durable topic exchange
// when it is not the default exchange.
func Dial(url, exchange string) (*Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}
	return &Connection{conn: conn, ch: ch}, nil
}

func (c *Connection) Channel() Channel { return c.ch }

func (c *Connection) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
