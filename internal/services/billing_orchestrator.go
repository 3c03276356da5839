package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
)

// NotificationSender delivers a notification payload to a named destination.
type NotificationSender interface {
	Send(ctx context.Context, notification *models.InvoiceNotification, destination string) error
}

// BillingPipeline is the orchestration surface: the scheduler drives the
// batch, the queue consumer and HTTP handlers drive single policies.
type BillingPipeline interface {
	RunMonthlyBatch(ctx context.Context) (*BatchResult, error)
	ProcessSingleInsurance(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd *time.Time) (*models.InvoiceNotification, error)
}

// BatchResult summarizes one monthly billing run.
type BatchResult struct {
	WindowStart   time.Time                     `json:"window_start"`
	WindowEnd     time.Time                     `json:"window_end"`
	TotalPolicies int                           `json:"total_policies"`
	Invoiced      int                           `json:"invoiced"`
	Skipped       int                           `json:"skipped"`
	Failed        int                           `json:"failed"`
	Notifications []*models.InvoiceNotification `json:"-"`
	Errors        []error                       `json:"-"`
}

// BillingOrchestrator walks active policies, prorates their coverage prices
// over the billing window and drives invoice generation plus notification
// delivery for each.
type BillingOrchestrator struct {
	policies          PolicyStore
	issuer            InvoiceIssuer
	sender            NotificationSender
	calculator        *ProrationCalculator
	notificationQueue string
	clock             func() time.Time
}

func NewBillingOrchestrator(
	policies PolicyStore,
	issuer InvoiceIssuer,
	sender NotificationSender,
	calculator *ProrationCalculator,
	notificationQueue string,
) *BillingOrchestrator {
	return &BillingOrchestrator{
		policies:          policies,
		issuer:            issuer,
		sender:            sender,
		calculator:        calculator,
		notificationQueue: notificationQueue,
		clock:             time.Now,
	}
}

// RunMonthlyBatch bills every active policy for next calendar month. Each
// policy's billing period is its term clamped to that window. One policy
// failing never aborts the run: the failure is logged, collected on the
// result and the loop moves on.
func (o *BillingOrchestrator) RunMonthlyBatch(ctx context.Context) (*BatchResult, error) {
	now := o.clock().UTC()
	windowStart := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := LastDayOfMonth(windowStart)

	result := &BatchResult{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}

	slog.Info("starting monthly billing batch",
		"window_start", windowStart.Format(time.DateOnly),
		"window_end", windowEnd.Format(time.DateOnly))

	policies, err := o.policies.ListActivePolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}
	result.TotalPolicies = len(policies)

	for i := range policies {
		policy := &policies[i]

		start := maxDate(DateOnly(policy.StartDate), windowStart)
		end := minDate(DateOnly(policy.EndDate), windowEnd)
		if start.After(end) {
			result.Skipped++
			continue
		}

		notification, err := o.billPolicy(ctx, policy.ID, start, end)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("policy %s: %w", policy.ID, err))
			slog.Error("failed to bill policy",
				"policy_id", policy.ID,
				"period_start", start.Format(time.DateOnly),
				"period_end", end.Format(time.DateOnly),
				"error", err)
			continue
		}
		if notification == nil {
			result.Skipped++
			continue
		}

		result.Invoiced++
		result.Notifications = append(result.Notifications, notification)
	}

	slog.Info("monthly billing batch completed",
		"total_policies", result.TotalPolicies,
		"invoiced", result.Invoiced,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}

// ProcessSingleInsurance bills one policy for the given period, defaulting to
// today through the end of the current month. Unlike the batch path, errors
// propagate so the queue consumer can retry or dead-letter the request.
// A nil notification with nil error means nothing needed billing.
func (o *BillingOrchestrator) ProcessSingleInsurance(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd *time.Time) (*models.InvoiceNotification, error) {
	now := o.clock().UTC()

	start := DateOnly(now)
	if periodStart != nil {
		start = DateOnly(*periodStart)
	}
	end := LastDayOfMonth(DateOnly(now))
	if periodEnd != nil {
		end = DateOnly(*periodEnd)
	}

	policy, err := o.policies.GetPolicyByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if policy.Status != models.PolicyActive {
		return nil, models.NewValidationError(
			"policy %s is not billable in status %s", policyID, policy.Status)
	}

	notification, err := o.billPolicy(ctx, policyID, start, end)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		slog.Info("no invoice produced for billing request",
			"policy_id", policyID,
			"period_start", start.Format(time.DateOnly),
			"period_end", end.Format(time.DateOnly))
	}
	return notification, nil
}

// billPolicy runs calculate -> generate -> send for one policy and period.
func (o *BillingOrchestrator) billPolicy(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time) (*models.InvoiceNotification, error) {
	coverages, err := o.policies.ListActiveCoverages(ctx, policyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	amount, err := o.calculator.Calculate(CoveragePrices(coverages), periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		slog.Info("nothing to bill for period, skipping",
			"policy_id", policyID,
			"period_start", periodStart.Format(time.DateOnly),
			"period_end", periodEnd.Format(time.DateOnly))
		return nil, nil
	}

	notification, err := o.issuer.GenerateInvoice(ctx, policyID, periodStart, periodEnd, amount)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, nil
	}

	if err := o.sender.Send(ctx, notification, o.notificationQueue); err != nil {
		return nil, err
	}
	return notification, nil
}
