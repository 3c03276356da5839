package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocumentView() InvoiceDocumentView {
	return InvoiceDocumentView{
		InvoiceID:     "5f6e4a3c-1d2b-4c5d-8e9f-0a1b2c3d4e5f",
		InvoiceNumber: "INV-20250610-0A1B2C3D",
		IssuedDate:    time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, time.July, 10, 8, 0, 0, 0, time.UTC),
		PeriodStart:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("210.00"),
		Notes:         "Payment is due by 10 Jul 2025.",
		Customer: CustomerDetails{
			Name:    "Jordan Reyes",
			Email:   "jordan.reyes@example.com",
			Phone:   "+1 555 0147",
			Address: "12 Harbor Street, Portsmouth",
		},
		Policy: PolicyDetails{
			PolicyNumber: "POL-2025-000123",
			VehiclePlate: "KX-4821",
		},
		Lines: []CoverageLine{
			{Name: "Collision", MonthlyPrice: decimal.RequireFromString("100")},
			{Name: "Theft", MonthlyPrice: decimal.RequireFromString("200")},
		},
	}
}

// ============================================================================
// PDF Renderer Tests
// ============================================================================

func TestRenderInvoice(t *testing.T) {
	renderer := NewInvoicePDFRenderer("Atlas Vehicle Insurance")

	document, err := renderer.RenderInvoice(sampleDocumentView())

	require.NoError(t, err)
	require.NotEmpty(t, document)
	assert.Equal(t, "%PDF", string(document[:4]))
}

func TestRenderInvoiceWithoutLines(t *testing.T) {
	renderer := NewInvoicePDFRenderer("Atlas Vehicle Insurance")

	view := sampleDocumentView()
	view.Lines = nil
	view.Notes = ""

	document, err := renderer.RenderInvoice(view)

	require.NoError(t, err)
	assert.NotEmpty(t, document)
}

// ============================================================================
// Formatting Helper Tests
// ============================================================================

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"small amount", "210", "210.00"},
		{"keeps cents", "99.5", "99.50"},
		{"thousands separator", "1234.5", "1,234.50"},
		{"millions", "1234567.89", "1,234,567.89"},
		{"exactly one thousand", "1000", "1,000.00"},
		{"negative", "-1234.56", "-1,234.56"},
		{"zero", "0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatAmount(decimal.RequireFromString(tt.input)))
		})
	}
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "-", orDash("   "))
	assert.Equal(t, "value", orDash("value"))
}
