package services

import (
	"testing"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Notification Template Tests
// ============================================================================

func TestBuildInvoiceNotification(t *testing.T) {
	user := &models.User{
		ID:       uuid.New(),
		FullName: "Jordan Reyes",
		Email:    "jordan.reyes@example.com",
	}
	invoice := &models.Invoice{
		ID:            uuid.MustParse("5f6e4a3c-1d2b-4c5d-8e9f-0a1b2c3d4e5f"),
		PolicyID:      uuid.New(),
		InvoiceNumber: "INV-20250610-0A1B2C3D",
		Amount:        decimal.RequireFromString("210.00"),
		IssuedDate:    time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, time.July, 10, 8, 0, 0, 0, time.UTC),
		PeriodStart:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
		DocumentURL:   "http://localhost:9000/invoices/5f6e4a3c-1d2b-4c5d-8e9f-0a1b2c3d4e5f.pdf",
	}

	notification := BuildInvoiceNotification(user, invoice, "Atlas Vehicle Insurance")

	require.NotNil(t, notification)
	assert.Equal(t, "jordan.reyes@example.com", notification.RecipientEmail)
	assert.Equal(t, "Jordan Reyes", notification.RecipientName)
	assert.Equal(t, invoice.ID.String(), notification.InvoiceID)
	assert.Equal(t, "INV-20250610-0A1B2C3D", notification.InvoiceNumber)
	assert.Equal(t, "210.00", notification.Amount)
	assert.Equal(t, "2025-07-10T08:00:00Z", notification.DueDate)
	assert.Equal(t, invoice.DocumentURL, notification.DocumentURL)
	assert.Contains(t, notification.Subject, "INV-20250610-0A1B2C3D")
	assert.Contains(t, notification.Subject, "Atlas Vehicle Insurance")
	assert.Contains(t, notification.HTMLBody, "Jordan Reyes")
	assert.Contains(t, notification.HTMLBody, "210.00")
	assert.Contains(t, notification.HTMLBody, "10 Jun 2025")
	assert.Contains(t, notification.HTMLBody, "30 Jun 2025")
	assert.Contains(t, notification.HTMLBody, invoice.DocumentURL)
}

func TestBuildInvoiceNotificationDeterministic(t *testing.T) {
	user := &models.User{FullName: "Sam Okafor", Email: "sam@example.com"}
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-20250701-DEADBEEF",
		Amount:        decimal.RequireFromString("99.50"),
		DueDate:       time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC),
		PeriodStart:   time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC),
	}

	first := BuildInvoiceNotification(user, invoice, "Atlas Vehicle Insurance")
	second := BuildInvoiceNotification(user, invoice, "Atlas Vehicle Insurance")

	assert.Equal(t, first, second)
}

func TestBuildInvoiceNotes(t *testing.T) {
	invoice := &models.Invoice{
		InvoiceNumber: "INV-20250610-0A1B2C3D",
		DueDate:       time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC),
	}

	notes := buildInvoiceNotes(invoice)

	assert.Contains(t, notes, "10 Jul 2025")
	assert.Contains(t, notes, "INV-20250610-0A1B2C3D")
}
