package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// INVOICES
// ============================================================================

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice is the billing record for one policy over one billing period.
// Created exactly once per (policy_id, period_start, period_end); the store
// enforces that with a uniqueness constraint. Status transitions after
// creation (paid, overdue) belong to payment processing.
type Invoice struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	PolicyID      uuid.UUID       `json:"policy_id" db:"policy_id"`
	Status        InvoiceStatus   `json:"status" db:"status"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	IssuedDate    time.Time       `json:"issued_date" db:"issued_date"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	PeriodStart   time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd     time.Time       `json:"period_end" db:"period_end"`
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	DocumentURL   string          `json:"document_url" db:"document_url"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
