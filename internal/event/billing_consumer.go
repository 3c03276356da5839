package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"billing-service/internal/config"
	"billing-service/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const retryCountHeader = "x-retry-count"

// BillingProcessor is the slice of the orchestrator the consumer drives.
type BillingProcessor interface {
	ProcessSingleInsurance(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd *time.Time) (*models.InvoiceNotification, error)
}

// BillingRequestConsumer consumes billing requests from RabbitMQ. Transient
// failures are requeued with a growing delay up to the attempt limit; bad
// payloads and permanent failures go straight to the dead-letter queue.
type BillingRequestConsumer struct {
	client       *TransportClient
	processor    BillingProcessor
	queueName    string
	maxAttempts  int
	retryBackoff time.Duration
	prefetch     int
	channel      *amqp.Channel
}

// NewBillingRequestConsumer creates a consumer for the billing request queue.
func NewBillingRequestConsumer(client *TransportClient, processor BillingProcessor, cfg config.BillingConfig) *BillingRequestConsumer {
	return &BillingRequestConsumer{
		client:       client,
		processor:    processor,
		queueName:    cfg.BillingRequestQueue,
		maxAttempts:  cfg.MaxDeliveryAttempts,
		retryBackoff: cfg.RetryBackoff,
		prefetch:     cfg.PrefetchCount,
	}
}

// Start begins consuming billing requests until the context is cancelled.
func (c *BillingRequestConsumer) Start(ctx context.Context) error {
	ch, err := c.client.ConsumerChannel(c.queueName)
	if err != nil {
		return err
	}
	c.channel = ch

	// Set QoS for controlled processing
	if err := ch.Qos(
		c.prefetch, // prefetch count
		0,          // prefetch size
		false,      // global
	); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,
		"billing-service", // consumer tag
		false,             // auto-ack (we'll manually ack after processing)
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", c.queueName, err)
	}

	slog.Info("Billing request consumer started",
		"queue", c.queueName,
		"max_attempts", c.maxAttempts,
		"prefetch", c.prefetch,
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("Billing request consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("Billing request delivery channel closed")
					return
				}
				c.processDelivery(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *BillingRequestConsumer) processDelivery(ctx context.Context, msg amqp.Delivery) {
	var envelope Envelope
	if err := json.Unmarshal(msg.Body, &envelope); err != nil {
		slog.Error("failed to unmarshal billing request envelope, dead-lettering", "error", err)
		// Reject without requeue; the broker routes it to the DLQ.
		c.nack(msg)
		return
	}

	request, err := envelope.DecodeBillingRequest()
	if err != nil {
		slog.Error("invalid billing request, dead-lettering",
			"message_id", envelope.MessageID,
			"error", err,
		)
		c.nack(msg)
		return
	}

	slog.Info("Received billing request",
		"message_id", envelope.MessageID,
		"policy_id", request.PolicyID,
	)

	_, err = c.processor.ProcessSingleInsurance(ctx, request.PolicyID, request.BillingPeriodStart, request.BillingPeriodEnd)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			slog.Error("failed to ack billing request", "message_id", envelope.MessageID, "error", ackErr)
		}
		return
	}

	attempts := retryCountFromHeaders(msg.Headers)
	if !shouldRequeue(err, attempts, c.maxAttempts) {
		slog.Error("billing request failed, dead-lettering",
			"message_id", envelope.MessageID,
			"policy_id", request.PolicyID,
			"attempts", attempts+1,
			"kind", models.KindOf(err).String(),
			"error", err,
		)
		c.nack(msg)
		return
	}

	slog.Warn("billing request failed, scheduling retry",
		"message_id", envelope.MessageID,
		"policy_id", request.PolicyID,
		"attempt", attempts+1,
		"error", err,
	)
	if requeueErr := c.requeueMessage(ctx, msg, attempts+1); requeueErr != nil {
		slog.Error("failed to requeue billing request, leaving for broker redelivery",
			"message_id", envelope.MessageID,
			"error", requeueErr,
		)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			slog.Error("failed to nack billing request", "error", nackErr)
		}
		return
	}
	// The retry copy is queued; retire the original delivery.
	if ackErr := msg.Ack(false); ackErr != nil {
		slog.Error("failed to ack requeued billing request", "error", ackErr)
	}
}

// requeueMessage publishes a copy of the delivery back onto the queue with an
// incremented retry header and a TTL as quadratic backoff. If the copy is
// still unconsumed when the TTL lapses the broker dead-letters it.
func (c *BillingRequestConsumer) requeueMessage(ctx context.Context, msg amqp.Delivery, retryCount int) error {
	headers := amqp.Table{}
	for key, value := range msg.Headers {
		headers[key] = value
	}
	headers[retryCountHeader] = int32(retryCount)

	delay := time.Duration(retryCount*retryCount) * c.retryBackoff

	return c.client.PublishTo(ctx, c.queueName, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  msg.ContentType,
		MessageId:    msg.MessageId,
		Type:         msg.Type,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Expiration:   fmt.Sprintf("%d", delay.Milliseconds()),
		Body:         msg.Body,
	})
}

func (c *BillingRequestConsumer) nack(msg amqp.Delivery) {
	if err := msg.Nack(false, false); err != nil {
		slog.Error("failed to nack billing request", "error", err)
	}
}

// Close shuts down the consumer channel.
func (c *BillingRequestConsumer) Close() {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			slog.Warn("failed to close consumer channel", "queue", c.queueName, "error", err)
		}
	}
}

func retryCountFromHeaders(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch value := headers[retryCountHeader].(type) {
	case int32:
		return int(value)
	case int64:
		return int(value)
	case int:
		return value
	}
	return 0
}

// shouldRequeue allows retries only for transient failures with attempts
// remaining. Validation, not-found and permanent failures dead-letter
// immediately since replaying them cannot change the outcome.
func shouldRequeue(err error, attempts, maxAttempts int) bool {
	if attempts >= maxAttempts {
		return false
	}
	return models.IsRetryable(err)
}
