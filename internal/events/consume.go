package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

type consumeChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// BindingKey selects the updates of one session, or of every session when
// sessionID is uuid.Nil.
func BindingKey(sessionID uuid.UUID) string {
	if sessionID == uuid.Nil {
		return "session.*"
	}
	return fmt.Sprintf("session.%s", sessionID)
}

// Subscribe consumes updates from the exchange through a private queue and
// hands each one to handle until ctx is done or the broker closes the
// delivery channel. Malformed messages are logged and skipped.
func Subscribe(ctx context.Context, conn *amqp.Connection, exchange string, sessionID uuid.UUID, logger *slog.Logger, handle func(Update)) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("error connecting to rabbitmq channel: %w", err)
	}
	return subscribe(ctx, ch, exchange, sessionID, logger, handle)
}

func subscribe(ctx context.Context, ch consumeChannel, exchange string, sessionID uuid.UUID, logger *slog.Logger, handle func(Update)) error {
	defer ch.Close()
	if logger == nil {
		logger = slog.Default()
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	key := BindingKey(sessionID)
	if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to %s: %w", key, err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("error consuming rabbitmq message: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var u Update
			if err := json.Unmarshal(msg.Body, &u); err != nil {
				logger.Warn("error unmarshalling message body", "routing_key", msg.RoutingKey, "error", err)
				continue
			}
			handle(u)
		}
	}
}
