package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"billing-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends this service's outbound messages through the transport
// client and keeps delivery counters for the health endpoint. It satisfies
// the orchestrator's notification sender.
type Publisher struct {
	client *TransportClient

	mu                sync.Mutex
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

// NewPublisher creates a publisher on an established transport client.
func NewPublisher(client *TransportClient) *Publisher {
	return &Publisher{
		client: client,
	}
}

// Send publishes an invoice notification to the destination queue.
func (p *Publisher) Send(ctx context.Context, notification *models.InvoiceNotification, destination string) error {
	envelope, err := NewInvoiceNotificationEnvelope(destination, notification)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, envelope); err != nil {
		return err
	}

	slog.Info("Invoice notification published",
		"queue", destination,
		"message_id", envelope.MessageID,
		"invoice_number", notification.InvoiceNumber,
		"recipient", notification.RecipientEmail,
	)
	return nil
}

// PublishBillingRequest enqueues a billing request and returns the message id
// so API callers can correlate the eventual outcome.
func (p *Publisher) PublishBillingRequest(ctx context.Context, destination string, request BillingRequest) (string, error) {
	envelope, err := NewBillingRequestEnvelope(destination, request)
	if err != nil {
		return "", err
	}
	if err := p.publish(ctx, envelope); err != nil {
		return "", err
	}

	slog.Info("Billing request published",
		"queue", destination,
		"message_id", envelope.MessageID,
		"policy_id", request.PolicyID,
	)
	return envelope.MessageID, nil
}

func (p *Publisher) publish(ctx context.Context, envelope *Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		p.recordFailure()
		return models.NewPermanentError(err, "failed to serialize envelope %s", envelope.MessageID)
	}

	err = p.client.PublishTo(ctx, envelope.Destination, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    envelope.MessageID,
		Type:         envelope.Type,
		Timestamp:    envelope.PublishedAt,
		Body:         body,
	})
	if err != nil {
		p.recordFailure()
		return err
	}

	p.mu.Lock()
	p.messagesPublished++
	p.lastPublishTime = time.Now().UTC()
	p.mu.Unlock()
	return nil
}

func (p *Publisher) recordFailure() {
	p.mu.Lock()
	p.messagesFailed++
	p.mu.Unlock()
}

// GetMetrics returns publisher metrics.
func (p *Publisher) GetMetrics() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]any{
		"messages_published": p.messagesPublished,
		"messages_failed":    p.messagesFailed,
		"last_publish_time":  p.lastPublishTime,
	}
}

// PublisherHealthStatus reports the transport health for /checkhealth.
type PublisherHealthStatus struct {
	IsHealthy         bool      `json:"is_healthy"`
	MessagesPublished int64     `json:"messages_published"`
	MessagesFailed    int64     `json:"messages_failed"`
	LastPublishTime   time.Time `json:"last_publish_time"`
}

// HealthCheck returns the health status of the publisher.
func (p *Publisher) HealthCheck() PublisherHealthStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PublisherHealthStatus{
		IsHealthy:         p.client != nil && p.client.IsOpen(),
		MessagesPublished: p.messagesPublished,
		MessagesFailed:    p.messagesFailed,
		LastPublishTime:   p.lastPublishTime,
	}
}
