package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Storage interfaces the billing services consume. Satisfied by the
// repository and object storage layers; tests substitute fakes.

type PolicyStore interface {
	GetPolicyByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	ListActivePolicies(ctx context.Context) ([]models.Policy, error)
	ListActiveCoverages(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time) ([]models.Coverage, error)
}

type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type InvoiceStore interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByPolicyAndPeriod(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time) (*models.Invoice, error)
	ListByPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.Invoice, error)
}

type DocumentStore interface {
	UploadInvoiceDocument(ctx context.Context, invoiceID uuid.UUID, document []byte) (string, error)
	DeleteInvoiceDocument(ctx context.Context, invoiceID uuid.UUID) error
}

type DocumentRenderer interface {
	RenderInvoice(view InvoiceDocumentView) ([]byte, error)
}

// InvoiceIssuer is the invoice generation operation. The orchestrator and the
// instrumentation decorator depend on it rather than on the concrete
// generator. A (nil, nil) return means the period was already invoiced.
type InvoiceIssuer interface {
	GenerateInvoice(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time, amount decimal.Decimal) (*models.InvoiceNotification, error)
}

// InvoiceGenerator issues one invoice per policy and billing period: persist
// the record, render and store the PDF, and hand back the notification
// payload for delivery.
type InvoiceGenerator struct {
	policies    PolicyStore
	users       UserStore
	invoices    InvoiceStore
	renderer    DocumentRenderer
	documents   DocumentStore
	companyName string
	dueDays     int
	clock       func() time.Time
}

func NewInvoiceGenerator(
	policies PolicyStore,
	users UserStore,
	invoices InvoiceStore,
	renderer DocumentRenderer,
	documents DocumentStore,
	companyName string,
	dueDays int,
) *InvoiceGenerator {
	return &InvoiceGenerator{
		policies:    policies,
		users:       users,
		invoices:    invoices,
		renderer:    renderer,
		documents:   documents,
		companyName: companyName,
		dueDays:     dueDays,
		clock:       time.Now,
	}
}

// GenerateInvoice creates the invoice record with its stored PDF and returns
// the notification payload. The unique (policy, period) constraint is the
// duplicate guard: when another writer got there first the call returns
// (nil, nil) and the customer is not billed twice.
func (g *InvoiceGenerator) GenerateInvoice(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time, amount decimal.Decimal) (*models.InvoiceNotification, error) {
	start := DateOnly(periodStart)
	end := DateOnly(periodEnd)

	if start.After(end) {
		return nil, models.NewValidationError(
			"period start %s is after period end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if amount.Sign() <= 0 {
		return nil, models.NewValidationError(
			"invoice amount must be positive, got %s", amount.StringFixed(2))
	}

	policy, err := g.policies.GetPolicyByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	user, err := g.users.GetUserByID(ctx, policy.UserID)
	if err != nil {
		return nil, err
	}

	existing, err := g.invoices.FindByPolicyAndPeriod(ctx, policyID, start, end)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("invoice already exists for billing period, skipping",
			"policy_id", policyID,
			"invoice_number", existing.InvoiceNumber,
			"period_start", start.Format(time.DateOnly),
			"period_end", end.Format(time.DateOnly))
		return nil, nil
	}

	coverages, err := g.policies.ListActiveCoverages(ctx, policyID, start, end)
	if err != nil {
		return nil, err
	}

	now := g.clock().UTC()
	invoice := &models.Invoice{
		ID:            uuid.New(),
		PolicyID:      policyID,
		Status:        models.InvoicePending,
		Amount:        amount,
		PaidAmount:    decimal.Zero,
		IssuedDate:    now,
		DueDate:       now.AddDate(0, 0, g.dueDays),
		PeriodStart:   start,
		PeriodEnd:     end,
		InvoiceNumber: newInvoiceNumber(now),
	}

	document, err := g.renderer.RenderInvoice(buildDocumentView(policy, user, invoice, coverages))
	if err != nil {
		return nil, err
	}

	documentURL, err := g.documents.UploadInvoiceDocument(ctx, invoice.ID, document)
	if err != nil {
		return nil, err
	}
	invoice.DocumentURL = documentURL

	if err := g.invoices.Create(ctx, invoice); err != nil {
		if errors.Is(err, models.ErrDuplicateInvoice) {
			// Lost the insert race; drop the orphaned document.
			if deleteErr := g.documents.DeleteInvoiceDocument(ctx, invoice.ID); deleteErr != nil {
				slog.Warn("failed to delete orphaned invoice document",
					"invoice_id", invoice.ID, "error", deleteErr)
			}
			slog.Info("billing period invoiced concurrently, skipping",
				"policy_id", policyID,
				"period_start", start.Format(time.DateOnly),
				"period_end", end.Format(time.DateOnly))
			return nil, nil
		}
		return nil, err
	}

	slog.Info("invoice generated",
		"invoice_id", invoice.ID,
		"invoice_number", invoice.InvoiceNumber,
		"policy_id", policyID,
		"amount", amount.StringFixed(2),
		"due_date", invoice.DueDate.Format(time.DateOnly))

	return BuildInvoiceNotification(user, invoice, g.companyName), nil
}

// newInvoiceNumber builds "INV-{YYYYMMDD}-{8 hex}" identifiers, date from the
// issue timestamp and the suffix from a fresh UUID.
func newInvoiceNumber(now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("INV-%s-%s", now.UTC().Format("20060102"), token)
}

func buildDocumentView(policy *models.Policy, user *models.User, invoice *models.Invoice, coverages []models.Coverage) InvoiceDocumentView {
	lines := make([]CoverageLine, 0, len(coverages))
	for _, coverage := range coverages {
		lines = append(lines, CoverageLine{
			Name:         coverage.Name,
			MonthlyPrice: coverage.MonthlyPrice,
		})
	}

	address := user.Address
	if user.City != "" {
		if address != "" {
			address += ", "
		}
		address += user.City
	}

	return InvoiceDocumentView{
		InvoiceID:     invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		IssuedDate:    invoice.IssuedDate,
		DueDate:       invoice.DueDate,
		PeriodStart:   invoice.PeriodStart,
		PeriodEnd:     invoice.PeriodEnd,
		Amount:        invoice.Amount,
		Notes:         buildInvoiceNotes(invoice),
		Customer: CustomerDetails{
			Name:    user.FullName,
			Email:   user.Email,
			Phone:   user.PhoneNumber,
			Address: address,
		},
		Policy: PolicyDetails{
			PolicyNumber: policy.PolicyNumber,
			VehiclePlate: policy.VehiclePlate,
		},
		Lines: lines,
	}
}
