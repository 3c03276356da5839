package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"billing-service/internal/config"
	"billing-service/internal/event"
	"billing-service/internal/models"
	"billing-service/internal/services"
	"billing-service/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const documentURLExpiry = 15 * time.Minute

// BillingHandler exposes the admin and read endpoints of the billing
// pipeline: manual batch runs, on-demand billing requests, invoice reads,
// document links and pipeline stats.
type BillingHandler struct {
	pipeline  services.BillingPipeline
	publisher *event.Publisher
	invoices  services.InvoiceStore
	documents *services.InvoiceDocumentService
	stats     *services.PipelineStats
	billing   config.BillingConfig
}

func NewBillingHandler(
	pipeline services.BillingPipeline,
	publisher *event.Publisher,
	invoices services.InvoiceStore,
	documents *services.InvoiceDocumentService,
	stats *services.PipelineStats,
	billing config.BillingConfig,
) *BillingHandler {
	return &BillingHandler{
		pipeline:  pipeline,
		publisher: publisher,
		invoices:  invoices,
		documents: documents,
		stats:     stats,
		billing:   billing,
	}
}

func (bh *BillingHandler) Register(app *fiber.App) {
	api := app.Group("billing/api/v1")

	api.Post("/batch/run", bh.RunBatch)
	api.Post("/policies/:policy_id/billing-requests", bh.CreateBillingRequest)
	api.Get("/policies/:policy_id/invoices", bh.ListPolicyInvoices)
	api.Get("/invoices/:id", bh.GetInvoice)
	api.Get("/invoices/:id/document", bh.GetInvoiceDocument)
	api.Get("/stats", bh.GetStats)
}

// RunBatch triggers the monthly billing batch inline and returns its summary.
func (bh *BillingHandler) RunBatch(c fiber.Ctx) error {
	result, err := bh.pipeline.RunMonthlyBatch(c.Context())
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(utils.CreateErrorResponse("BATCH_FAILED", err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"window_start":   result.WindowStart.Format(time.DateOnly),
		"window_end":     result.WindowEnd.Format(time.DateOnly),
		"total_policies": result.TotalPolicies,
		"invoiced":       result.Invoiced,
		"skipped":        result.Skipped,
		"failed":         result.Failed,
	}))
}

// CreateBillingRequest enqueues a billing request for one policy and returns
// the message id. Processing happens asynchronously on the queue consumer.
func (bh *BillingHandler) CreateBillingRequest(c fiber.Ctx) error {
	policyID, err := uuid.Parse(c.Params("policy_id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_ID", "Invalid UUID format"))
	}

	var req models.CreateBillingRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			slog.Error("error parsing request", "error", err)
			return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
		}
	}

	messageID, err := bh.publisher.PublishBillingRequest(c.Context(), bh.billing.BillingRequestQueue, event.BillingRequest{
		PolicyID:           policyID,
		BillingPeriodStart: req.PeriodStart,
		BillingPeriodEnd:   req.PeriodEnd,
	})
	if err != nil {
		return bh.errorResponse(c, "ENQUEUE_FAILED", err)
	}

	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(map[string]string{
		"message_id": messageID,
		"policy_id":  policyID.String(),
		"queue":      bh.billing.BillingRequestQueue,
	}))
}

// GetInvoice returns one invoice by id.
func (bh *BillingHandler) GetInvoice(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_ID", "Invalid UUID format"))
	}

	invoice, err := bh.invoices.GetByID(c.Context(), id)
	if err != nil {
		return bh.errorResponse(c, "FETCH_FAILED", err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(invoice))
}

// ListPolicyInvoices returns a policy's invoices, newest first.
func (bh *BillingHandler) ListPolicyInvoices(c fiber.Ctx) error {
	policyID, err := uuid.Parse(c.Params("policy_id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_ID", "Invalid UUID format"))
	}

	invoices, err := bh.invoices.ListByPolicyID(c.Context(), policyID)
	if err != nil {
		return bh.errorResponse(c, "FETCH_FAILED", err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(invoices))
}

// GetInvoiceDocument returns a short-lived presigned URL for the invoice PDF.
func (bh *BillingHandler) GetInvoiceDocument(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_ID", "Invalid UUID format"))
	}

	url, err := bh.documents.PresignedDocumentURL(c.Context(), id, documentURLExpiry)
	if err != nil {
		return bh.errorResponse(c, "DOCUMENT_FAILED", err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"invoice_id":   id.String(),
		"document_url": url,
		"expires_in":   int(documentURLExpiry.Seconds()),
	}))
}

// GetStats returns pipeline counters and transport health.
func (bh *BillingHandler) GetStats(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"pipeline":  bh.stats.Snapshot(),
		"publisher": bh.publisher.HealthCheck(),
	}))
}

// errorResponse maps structured error kinds onto HTTP statuses.
func (bh *BillingHandler) errorResponse(c fiber.Ctx, code string, err error) error {
	status := http.StatusInternalServerError
	switch models.KindOf(err) {
	case models.KindNotFound:
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case models.KindValidation:
		status = http.StatusBadRequest
	case models.KindTransient:
		status = http.StatusServiceUnavailable
	}
	return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
}
