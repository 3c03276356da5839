package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"billing-service/internal/config"
	"billing-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TransportClient owns the broker connection and one publishing channel per
// destination queue. Every destination is declared durable alongside a
// paired dead-letter queue the broker moves rejected deliveries to.
type TransportClient struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channels map[string]*amqp.Channel
	closed   bool
}

// ConnectTransport establishes the broker connection.
func ConnectTransport(cfg config.RabbitMQConfig) (*TransportClient, error) {
	connStr := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		return nil, models.NewTransientError(err, "failed to connect to RabbitMQ at %s:%s", cfg.Host, cfg.Port)
	}

	slog.Info("Connected to RabbitMQ", "host", cfg.Host, "port", cfg.Port)

	return &TransportClient{
		conn:     conn,
		channels: make(map[string]*amqp.Channel),
	}, nil
}

// DeadLetterQueueName returns the dead-letter queue paired with a destination.
func DeadLetterQueueName(destination string) string {
	return destination + ".dlq"
}

// PublishTo publishes one message to a destination queue. Publishes are
// serialized per client because AMQP channels are not safe for concurrent use.
func (t *TransportClient) PublishTo(ctx context.Context, destination string, publishing amqp.Publishing) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return models.NewTransientError(nil, "transport client is closed")
	}

	ch, err := t.channelFor(destination)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		"",          // exchange
		destination, // routing key (queue name)
		false,       // mandatory
		false,       // immediate
		publishing,
	)
	if err != nil {
		return models.NewTransientError(err, "failed to publish to %s", destination)
	}
	return nil
}

// ConsumerChannel opens a dedicated channel with the destination and its
// dead-letter queue declared. The caller owns the returned channel.
func (t *TransportClient) ConsumerChannel(destination string) (*amqp.Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, models.NewTransientError(nil, "transport client is closed")
	}

	ch, err := t.conn.Channel()
	if err != nil {
		return nil, models.NewTransientError(err, "failed to open consumer channel for %s", destination)
	}
	if err := declareDestination(ch, destination); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}

// IsOpen reports whether the underlying connection is usable.
func (t *TransportClient) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && t.conn != nil && !t.conn.IsClosed()
}

// Close tears down every channel and the connection. Safe to call twice.
func (t *TransportClient) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	for destination, ch := range t.channels {
		if err := ch.Close(); err != nil {
			slog.Error("failed to close RabbitMQ channel", "destination", destination, "error", err)
		}
		delete(t.channels, destination)
	}

	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			slog.Error("failed to close RabbitMQ connection", "error", err)
			return err
		}
	}
	slog.Info("RabbitMQ connection closed")
	return nil
}

// channelFor returns the cached publishing channel for a destination,
// declaring the destination on first use. Caller holds t.mu.
func (t *TransportClient) channelFor(destination string) (*amqp.Channel, error) {
	if ch, ok := t.channels[destination]; ok && !ch.IsClosed() {
		return ch, nil
	}

	ch, err := t.conn.Channel()
	if err != nil {
		return nil, models.NewTransientError(err, "failed to open channel for %s", destination)
	}
	if err := declareDestination(ch, destination); err != nil {
		ch.Close()
		return nil, err
	}

	t.channels[destination] = ch
	return t.channels[destination], nil
}

func declareDestination(ch *amqp.Channel, destination string) error {
	dlq := DeadLetterQueueName(destination)

	_, err := ch.QueueDeclare(
		dlq,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return models.NewTransientError(err, "failed to declare dead-letter queue %s", dlq)
	}

	_, err = ch.QueueDeclare(
		destination,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlq,
		},
	)
	if err != nil {
		return models.NewTransientError(err, "failed to declare queue %s", destination)
	}
	return nil
}
