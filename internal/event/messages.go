package event

import (
	"encoding/json"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on every envelope so consumers can reject
// payloads from incompatible producers instead of misreading them.
const SchemaVersion = 1

// The closed set of message types this service publishes or consumes.
const (
	MessageTypeBillingRequest      = "billing.invoice.request"
	MessageTypeInvoiceNotification = "billing.invoice.generated"
)

// Envelope frames every message on the wire: unique identity, a tagged type,
// the schema version and destination metadata around an opaque payload.
type Envelope struct {
	MessageID     string          `json:"messageId"`
	Type          string          `json:"type"`
	SchemaVersion int             `json:"schemaVersion"`
	Destination   string          `json:"destination"`
	PublishedAt   time.Time       `json:"publishedAt"`
	Payload       json.RawMessage `json:"payload"`
}

// BillingRequest asks for one policy to be billed. Omitted period bounds
// fall back to the processor's defaults.
type BillingRequest struct {
	PolicyID           uuid.UUID  `json:"policyId"`
	BillingPeriodStart *time.Time `json:"billingPeriodStart,omitempty"`
	BillingPeriodEnd   *time.Time `json:"billingPeriodEnd,omitempty"`
}

// NewBillingRequestEnvelope wraps a billing request for publishing.
func NewBillingRequestEnvelope(destination string, request BillingRequest) (*Envelope, error) {
	if request.PolicyID == uuid.Nil {
		return nil, models.NewValidationError("billing request requires a policy id")
	}
	return newEnvelope(MessageTypeBillingRequest, destination, request)
}

// NewInvoiceNotificationEnvelope wraps an invoice notification for publishing.
func NewInvoiceNotificationEnvelope(destination string, notification *models.InvoiceNotification) (*Envelope, error) {
	if notification == nil {
		return nil, models.NewValidationError("notification payload is required")
	}
	return newEnvelope(MessageTypeInvoiceNotification, destination, notification)
}

func newEnvelope(messageType, destination string, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, models.NewPermanentError(err, "failed to serialize %s payload", messageType)
	}
	return &Envelope{
		MessageID:     uuid.New().String(),
		Type:          messageType,
		SchemaVersion: SchemaVersion,
		Destination:   destination,
		PublishedAt:   time.Now().UTC(),
		Payload:       body,
	}, nil
}

// DecodeBillingRequest extracts and validates the billing request payload.
func (e *Envelope) DecodeBillingRequest() (*BillingRequest, error) {
	if err := e.expect(MessageTypeBillingRequest); err != nil {
		return nil, err
	}
	var request BillingRequest
	if err := json.Unmarshal(e.Payload, &request); err != nil {
		return nil, models.NewValidationError("malformed %s payload: %v", e.Type, err)
	}
	if request.PolicyID == uuid.Nil {
		return nil, models.NewValidationError("billing request requires a policy id")
	}
	return &request, nil
}

// DecodeInvoiceNotification extracts the notification payload.
func (e *Envelope) DecodeInvoiceNotification() (*models.InvoiceNotification, error) {
	if err := e.expect(MessageTypeInvoiceNotification); err != nil {
		return nil, err
	}
	var notification models.InvoiceNotification
	if err := json.Unmarshal(e.Payload, &notification); err != nil {
		return nil, models.NewValidationError("malformed %s payload: %v", e.Type, err)
	}
	return &notification, nil
}

func (e *Envelope) expect(messageType string) error {
	switch e.Type {
	case MessageTypeBillingRequest, MessageTypeInvoiceNotification:
	default:
		return models.NewValidationError("unknown message type %q", e.Type)
	}
	if e.Type != messageType {
		return models.NewValidationError("unexpected message type %q, want %q", e.Type, messageType)
	}
	if e.SchemaVersion != SchemaVersion {
		return models.NewValidationError("unsupported schema version %d, this consumer speaks %d", e.SchemaVersion, SchemaVersion)
	}
	return nil
}
