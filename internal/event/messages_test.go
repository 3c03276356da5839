package event

import (
	"encoding/json"
	"testing"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Envelope Tests
// ============================================================================

func TestNewBillingRequestEnvelope(t *testing.T) {
	policyID := uuid.New()
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	envelope, err := NewBillingRequestEnvelope("billing_requests", BillingRequest{
		PolicyID:           policyID,
		BillingPeriodStart: &start,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, envelope.MessageID)
	assert.Equal(t, MessageTypeBillingRequest, envelope.Type)
	assert.Equal(t, SchemaVersion, envelope.SchemaVersion)
	assert.Equal(t, "billing_requests", envelope.Destination)
	assert.False(t, envelope.PublishedAt.IsZero())

	decoded, err := envelope.DecodeBillingRequest()
	require.NoError(t, err)
	assert.Equal(t, policyID, decoded.PolicyID)
	require.NotNil(t, decoded.BillingPeriodStart)
	assert.True(t, start.Equal(*decoded.BillingPeriodStart))
	assert.Nil(t, decoded.BillingPeriodEnd)
}

func TestNewBillingRequestEnvelopeRequiresPolicyID(t *testing.T) {
	_, err := NewBillingRequestEnvelope("billing_requests", BillingRequest{})

	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestEnvelopeMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		envelope, err := NewBillingRequestEnvelope("billing_requests", BillingRequest{PolicyID: uuid.New()})
		require.NoError(t, err)
		assert.False(t, seen[envelope.MessageID])
		seen[envelope.MessageID] = true
	}
}

func TestNotificationEnvelopeWireFormat(t *testing.T) {
	notification := &models.InvoiceNotification{
		RecipientEmail: "jordan.reyes@example.com",
		RecipientName:  "Jordan Reyes",
		InvoiceID:      "5f6e4a3c-1d2b-4c5d-8e9f-0a1b2c3d4e5f",
		InvoiceNumber:  "INV-20250610-0A1B2C3D",
		Amount:         "210.00",
		DueDate:        "2025-07-10T08:00:00Z",
		DocumentURL:    "http://localhost:9000/invoices/doc.pdf",
		Subject:        "Invoice",
		HTMLBody:       "<html></html>",
	}

	envelope, err := NewInvoiceNotificationEnvelope("invoice_notifications", notification)
	require.NoError(t, err)

	raw, err := json.Marshal(envelope)
	require.NoError(t, err)

	// Field names are part of the wire contract with downstream consumers.
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &wire))
	for _, field := range []string{"messageId", "type", "schemaVersion", "destination", "publishedAt", "payload"} {
		assert.Contains(t, wire, field)
	}

	var payload map[string]any
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	for _, field := range []string{
		"recipientEmail", "recipientName", "invoiceId", "invoiceNumber",
		"amount", "dueDate", "documentUrl", "subject", "htmlBody",
	} {
		assert.Contains(t, payload, field)
	}
	assert.Equal(t, "210.00", payload["amount"])
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	envelope := &Envelope{
		MessageID:     uuid.New().String(),
		Type:          "billing.invoice.paid",
		SchemaVersion: SchemaVersion,
		Payload:       json.RawMessage(`{}`),
	}

	_, err := envelope.DecodeBillingRequest()

	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
	assert.Contains(t, err.Error(), "unknown message type")
}

func TestDecodeRejectsMismatchedType(t *testing.T) {
	envelope, err := NewInvoiceNotificationEnvelope("invoice_notifications", &models.InvoiceNotification{})
	require.NoError(t, err)

	_, err = envelope.DecodeBillingRequest()

	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestDecodeRejectsSchemaVersionMismatch(t *testing.T) {
	envelope, err := NewBillingRequestEnvelope("billing_requests", BillingRequest{PolicyID: uuid.New()})
	require.NoError(t, err)
	envelope.SchemaVersion = SchemaVersion + 1

	_, err = envelope.DecodeBillingRequest()

	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestDecodeBillingRequestMalformedPayload(t *testing.T) {
	envelope := &Envelope{
		MessageID:     uuid.New().String(),
		Type:          MessageTypeBillingRequest,
		SchemaVersion: SchemaVersion,
		Payload:       json.RawMessage(`{"policyId": "not-a-uuid"}`),
	}

	_, err := envelope.DecodeBillingRequest()

	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}
