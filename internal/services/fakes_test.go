package services

import (
	"context"
	"fmt"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
)

// In-memory fakes for the storage and transport interfaces. Error fields
// inject failures per policy or globally.

type coverageLink struct {
	coverage models.Coverage
	link     models.PolicyCoverage
}

type fakePolicyStore struct {
	policies     []models.Policy
	links        map[uuid.UUID][]coverageLink
	listErr      error
	coverageErrs map[uuid.UUID]error
}

func newFakePolicyStore() *fakePolicyStore {
	return &fakePolicyStore{
		links:        make(map[uuid.UUID][]coverageLink),
		coverageErrs: make(map[uuid.UUID]error),
	}
}

func (f *fakePolicyStore) addPolicy(policy models.Policy) {
	f.policies = append(f.policies, policy)
}

func (f *fakePolicyStore) addCoverage(policyID uuid.UUID, coverage models.Coverage, link models.PolicyCoverage) {
	link.PolicyID = policyID
	link.CoverageID = coverage.ID
	f.links[policyID] = append(f.links[policyID], coverageLink{coverage: coverage, link: link})
}

func (f *fakePolicyStore) GetPolicyByID(_ context.Context, id uuid.UUID) (*models.Policy, error) {
	for i := range f.policies {
		if f.policies[i].ID == id {
			policy := f.policies[i]
			return &policy, nil
		}
	}
	return nil, models.NewNotFoundError("policy %s not found", id)
}

func (f *fakePolicyStore) ListActivePolicies(_ context.Context) ([]models.Policy, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var active []models.Policy
	for _, policy := range f.policies {
		if policy.Status == models.PolicyActive {
			active = append(active, policy)
		}
	}
	return active, nil
}

func (f *fakePolicyStore) ListActiveCoverages(_ context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time) ([]models.Coverage, error) {
	if err := f.coverageErrs[policyID]; err != nil {
		return nil, err
	}
	var coverages []models.Coverage
	for _, cl := range f.links[policyID] {
		if cl.link.Status != models.CoverageActive || cl.coverage.Status != models.CoverageActive {
			continue
		}
		if cl.link.StartDate.After(periodEnd) {
			continue
		}
		if cl.link.EndDate != nil && cl.link.EndDate.Before(periodStart) {
			continue
		}
		coverages = append(coverages, cl.coverage)
	}
	return coverages, nil
}

type fakeUserStore struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserStore) addUser(user models.User) {
	f.users[user.ID] = &user
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, models.NewNotFoundError("user %s not found", id)
	}
	copied := *user
	return &copied, nil
}

type fakeInvoiceStore struct {
	invoices  []*models.Invoice
	createErr error
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{}
}

func periodKey(policyID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", policyID, start.Format(time.DateOnly), end.Format(time.DateOnly))
}

func (f *fakeInvoiceStore) Create(_ context.Context, invoice *models.Invoice) error {
	if f.createErr != nil {
		return f.createErr
	}
	key := periodKey(invoice.PolicyID, invoice.PeriodStart, invoice.PeriodEnd)
	for _, existing := range f.invoices {
		if periodKey(existing.PolicyID, existing.PeriodStart, existing.PeriodEnd) == key {
			return fmt.Errorf("failed to create invoice: %w", models.ErrDuplicateInvoice)
		}
	}
	copied := *invoice
	f.invoices = append(f.invoices, &copied)
	return nil
}

func (f *fakeInvoiceStore) GetByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	for _, invoice := range f.invoices {
		if invoice.ID == id {
			copied := *invoice
			return &copied, nil
		}
	}
	return nil, models.NewNotFoundError("invoice %s not found", id)
}

func (f *fakeInvoiceStore) FindByPolicyAndPeriod(_ context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time) (*models.Invoice, error) {
	key := periodKey(policyID, periodStart, periodEnd)
	for _, invoice := range f.invoices {
		if periodKey(invoice.PolicyID, invoice.PeriodStart, invoice.PeriodEnd) == key {
			copied := *invoice
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeInvoiceStore) ListByPolicyID(_ context.Context, policyID uuid.UUID) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range f.invoices {
		if invoice.PolicyID == policyID {
			out = append(out, *invoice)
		}
	}
	return out, nil
}

type fakeDocumentStore struct {
	uploads   map[uuid.UUID][]byte
	deleted   []uuid.UUID
	uploadErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{uploads: make(map[uuid.UUID][]byte)}
}

func (f *fakeDocumentStore) UploadInvoiceDocument(_ context.Context, invoiceID uuid.UUID, document []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads[invoiceID] = document
	return fmt.Sprintf("http://localhost:9000/invoices/%s.pdf", invoiceID), nil
}

func (f *fakeDocumentStore) DeleteInvoiceDocument(_ context.Context, invoiceID uuid.UUID) error {
	delete(f.uploads, invoiceID)
	f.deleted = append(f.deleted, invoiceID)
	return nil
}

type fakeRenderer struct {
	renderErr error
	lastView  InvoiceDocumentView
	calls     int
}

func (f *fakeRenderer) RenderInvoice(view InvoiceDocumentView) ([]byte, error) {
	f.calls++
	f.lastView = view
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return []byte("%PDF-1.7 " + view.InvoiceNumber), nil
}

type fakeSender struct {
	sent         []*models.InvoiceNotification
	destinations []string
	sendErr      error
}

func (f *fakeSender) Send(_ context.Context, notification *models.InvoiceNotification, destination string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, notification)
	f.destinations = append(f.destinations, destination)
	return nil
}
