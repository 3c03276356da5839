package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PipelineStats aggregates counters across the billing pipeline. The
// instrumentation decorators feed it; the stats endpoint reads snapshots.
type PipelineStats struct {
	mu sync.RWMutex

	batchRuns          int64
	batchFailures      int64
	policiesInvoiced   int64
	policiesSkipped    int64
	policiesFailed     int64
	singleRequests     int64
	singleFailures     int64
	invoicesGenerated  int64
	duplicatesSkipped  int64
	generationFailures int64
	notificationsSent  int64
	sendFailures       int64
	lastBatchAt        time.Time
	lastBatchDuration  time.Duration
}

func NewPipelineStats() *PipelineStats {
	return &PipelineStats{}
}

// PipelineStatsSnapshot is a point-in-time copy safe to serialize.
type PipelineStatsSnapshot struct {
	BatchRuns           int64  `json:"batch_runs"`
	BatchFailures       int64  `json:"batch_failures"`
	PoliciesInvoiced    int64  `json:"policies_invoiced"`
	PoliciesSkipped     int64  `json:"policies_skipped"`
	PoliciesFailed      int64  `json:"policies_failed"`
	SingleRequests      int64  `json:"single_requests"`
	SingleFailures      int64  `json:"single_failures"`
	InvoicesGenerated   int64  `json:"invoices_generated"`
	DuplicatesSkipped   int64  `json:"duplicates_skipped"`
	GenerationFailures  int64  `json:"generation_failures"`
	NotificationsSent   int64  `json:"notifications_sent"`
	SendFailures        int64  `json:"send_failures"`
	LastBatchAt         string `json:"last_batch_at,omitempty"`
	LastBatchDurationMs int64  `json:"last_batch_duration_ms"`
}

func (s *PipelineStats) Snapshot() PipelineStatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := PipelineStatsSnapshot{
		BatchRuns:           s.batchRuns,
		BatchFailures:       s.batchFailures,
		PoliciesInvoiced:    s.policiesInvoiced,
		PoliciesSkipped:     s.policiesSkipped,
		PoliciesFailed:      s.policiesFailed,
		SingleRequests:      s.singleRequests,
		SingleFailures:      s.singleFailures,
		InvoicesGenerated:   s.invoicesGenerated,
		DuplicatesSkipped:   s.duplicatesSkipped,
		GenerationFailures:  s.generationFailures,
		NotificationsSent:   s.notificationsSent,
		SendFailures:        s.sendFailures,
		LastBatchDurationMs: s.lastBatchDuration.Milliseconds(),
	}
	if !s.lastBatchAt.IsZero() {
		snapshot.LastBatchAt = s.lastBatchAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}

func (s *PipelineStats) recordBatch(result *BatchResult, err error, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchRuns++
	s.lastBatchAt = time.Now().UTC()
	s.lastBatchDuration = elapsed
	if err != nil {
		s.batchFailures++
		return
	}
	s.policiesInvoiced += int64(result.Invoiced)
	s.policiesSkipped += int64(result.Skipped)
	s.policiesFailed += int64(result.Failed)
}

func (s *PipelineStats) recordSingle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singleRequests++
	if err != nil {
		s.singleFailures++
	}
}

func (s *PipelineStats) recordGeneration(notification *models.InvoiceNotification, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.generationFailures++
	case notification == nil:
		s.duplicatesSkipped++
	default:
		s.invoicesGenerated++
	}
}

func (s *PipelineStats) recordSend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.sendFailures++
		return
	}
	s.notificationsSent++
}

// Decorators wrapping the pipeline's three operations with timing, logging
// and counters. Each returns the wrapped interface so call sites compose:
//
//	issuer := WithIssuerInstrumentation(generator, stats)

type instrumentedIssuer struct {
	next  InvoiceIssuer
	stats *PipelineStats
}

func WithIssuerInstrumentation(next InvoiceIssuer, stats *PipelineStats) InvoiceIssuer {
	return &instrumentedIssuer{next: next, stats: stats}
}

func (i *instrumentedIssuer) GenerateInvoice(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time, amount decimal.Decimal) (*models.InvoiceNotification, error) {
	started := time.Now()
	notification, err := i.next.GenerateInvoice(ctx, policyID, periodStart, periodEnd, amount)
	elapsed := time.Since(started)

	i.stats.recordGeneration(notification, err)
	if err != nil {
		slog.Error("invoice generation failed",
			"policy_id", policyID,
			"kind", models.KindOf(err).String(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
	}
	return notification, err
}

type instrumentedSender struct {
	next  NotificationSender
	stats *PipelineStats
}

func WithSenderInstrumentation(next NotificationSender, stats *PipelineStats) NotificationSender {
	return &instrumentedSender{next: next, stats: stats}
}

func (i *instrumentedSender) Send(ctx context.Context, notification *models.InvoiceNotification, destination string) error {
	started := time.Now()
	err := i.next.Send(ctx, notification, destination)
	elapsed := time.Since(started)

	i.stats.recordSend(err)
	if err != nil {
		slog.Error("notification delivery failed",
			"destination", destination,
			"invoice_number", notification.InvoiceNumber,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
	}
	return err
}

type instrumentedPipeline struct {
	next  BillingPipeline
	stats *PipelineStats
}

func WithPipelineInstrumentation(next BillingPipeline, stats *PipelineStats) BillingPipeline {
	return &instrumentedPipeline{next: next, stats: stats}
}

func (i *instrumentedPipeline) RunMonthlyBatch(ctx context.Context) (*BatchResult, error) {
	started := time.Now()
	result, err := i.next.RunMonthlyBatch(ctx)
	elapsed := time.Since(started)

	i.stats.recordBatch(result, err, elapsed)
	if err != nil {
		slog.Error("monthly billing batch failed",
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
	} else {
		slog.Info("monthly billing batch finished",
			"invoiced", result.Invoiced,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"duration_ms", elapsed.Milliseconds())
	}
	return result, err
}

func (i *instrumentedPipeline) ProcessSingleInsurance(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd *time.Time) (*models.InvoiceNotification, error) {
	started := time.Now()
	notification, err := i.next.ProcessSingleInsurance(ctx, policyID, periodStart, periodEnd)
	elapsed := time.Since(started)

	i.stats.recordSingle(err)
	if err != nil {
		slog.Error("billing request processing failed",
			"policy_id", policyID,
			"kind", models.KindOf(err).String(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
	}
	return notification, err
}
