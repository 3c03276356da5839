package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

type InvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create inserts the invoice. Losing the race on the
// (policy_id, period_start, period_end) constraint yields
// models.ErrDuplicateInvoice so callers can treat it as "already invoiced".
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	invoice.CreatedAt = time.Now().UTC()
	invoice.UpdatedAt = invoice.CreatedAt

	query := `
		INSERT INTO invoices (
			id, policy_id, status, amount, paid_amount,
			issued_date, due_date, period_start, period_end,
			invoice_number, document_url, created_at, updated_at
		) VALUES (
			:id, :policy_id, :status, :amount, :paid_amount,
			:issued_date, :due_date, :period_start, :period_end,
			:invoice_number, :document_url, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, invoice)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			if pqErr.Constraint == "invoices_policy_period_key" {
				return fmt.Errorf("failed to create invoice for policy %s: %w", invoice.PolicyID, models.ErrDuplicateInvoice)
			}
			// Invoice-number collision; a retry generates a fresh token.
			return models.NewTransientError(err, "failed to create invoice %s", invoice.InvoiceNumber)
		}
		return models.NewTransientError(err, "failed to create invoice for policy %s", invoice.PolicyID)
	}

	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	query := `SELECT * FROM invoices WHERE id = $1`

	err := r.db.GetContext(ctx, &invoice, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("invoice %s not found", id)
		}
		return nil, models.NewTransientError(err, "failed to get invoice %s", id)
	}

	return &invoice, nil
}

// FindByPolicyAndPeriod returns the invoice covering exactly this billing
// period, or nil when none exists yet.
func (r *InvoiceRepository) FindByPolicyAndPeriod(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time) (*models.Invoice, error) {
	var invoice models.Invoice
	query := `SELECT * FROM invoices WHERE policy_id = $1 AND period_start = $2 AND period_end = $3`

	err := r.db.GetContext(ctx, &invoice, query, policyID, periodStart, periodEnd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, models.NewTransientError(err, "failed to find invoice for policy %s", policyID)
	}

	return &invoice, nil
}

func (r *InvoiceRepository) ListByPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	query := `SELECT * FROM invoices WHERE policy_id = $1 ORDER BY issued_date DESC`

	err := r.db.SelectContext(ctx, &invoices, query, policyID)
	if err != nil {
		return nil, models.NewTransientError(err, "failed to list invoices for policy %s", policyID)
	}

	return invoices, nil
}
