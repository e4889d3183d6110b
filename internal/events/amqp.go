package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// DefaultExchange receives every session update, routed by "session.<id>".
const DefaultExchange = "session_updates"

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes updates to a RabbitMQ topic exchange, opening a
// short-lived channel per message.
type AMQPPublisher struct {
	open     func() (amqpChannel, error)
	exchange string
}

// NewAMQPPublisher declares the topic exchange on conn and returns a
// publisher bound to it.
func NewAMQPPublisher(conn *amqp.Connection, exchange string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return newAMQPPublisher(func() (amqpChannel, error) { return conn.Channel() }, exchange), nil
}

func newAMQPPublisher(open func() (amqpChannel, error), exchange string) *AMQPPublisher {
	return &AMQPPublisher{open: open, exchange: exchange}
}

func RoutingKey(u Update) string {
	return fmt.Sprintf("session.%s", u.SessionID)
}

func (p *AMQPPublisher) Publish(_ context.Context, u Update) error {
	body, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	ch, err := p.open()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.Publish(
		p.exchange,
		RoutingKey(u),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   u.Timestamp,
			Body:        body,
		},
	)
}
