package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billing-service/internal/database/minio"
	"billing-service/internal/models"

	"github.com/google/uuid"
)

const invoiceContentType = "application/pdf"

// InvoiceDocumentService stores rendered invoice PDFs in object storage,
// one object per invoice keyed by the invoice id.
type InvoiceDocumentService struct {
	storage *minio.MinioClient
	bucket  string
}

func NewInvoiceDocumentService(storage *minio.MinioClient, bucket string) *InvoiceDocumentService {
	if bucket == "" {
		bucket = minio.Storage.Invoices
	}
	return &InvoiceDocumentService{
		storage: storage,
		bucket:  bucket,
	}
}

// UploadInvoiceDocument writes the PDF and returns its canonical URL.
func (s *InvoiceDocumentService) UploadInvoiceDocument(ctx context.Context, invoiceID uuid.UUID, document []byte) (string, error) {
	objectName := invoiceObjectName(invoiceID)

	if err := s.storage.UploadBytes(ctx, s.bucket, objectName, document, invoiceContentType); err != nil {
		return "", models.NewTransientError(err, "failed to upload document for invoice %s", invoiceID)
	}

	url := s.storage.ObjectURL(s.bucket, objectName)
	slog.Info("invoice document uploaded",
		"invoice_id", invoiceID,
		"object", objectName,
		"size_bytes", len(document))
	return url, nil
}

// DeleteInvoiceDocument removes the stored PDF. Used to clean up after an
// invoice insert loses to a concurrent writer.
func (s *InvoiceDocumentService) DeleteInvoiceDocument(ctx context.Context, invoiceID uuid.UUID) error {
	objectName := invoiceObjectName(invoiceID)
	if err := s.storage.DeleteFile(ctx, s.bucket, objectName); err != nil {
		return models.NewTransientError(err, "failed to delete document for invoice %s", invoiceID)
	}
	return nil
}

// PresignedDocumentURL returns a time-limited download link for the invoice
// PDF, or a not-found error when no document exists for the invoice.
func (s *InvoiceDocumentService) PresignedDocumentURL(ctx context.Context, invoiceID uuid.UUID, expiry time.Duration) (string, error) {
	objectName := invoiceObjectName(invoiceID)

	exists, err := s.storage.FileExists(ctx, s.bucket, objectName)
	if err != nil {
		return "", models.NewTransientError(err, "failed to check document for invoice %s", invoiceID)
	}
	if !exists {
		return "", models.NewNotFoundError("no document stored for invoice %s", invoiceID)
	}

	url, err := s.storage.GetPresignedURL(ctx, s.bucket, objectName, expiry)
	if err != nil {
		return "", models.NewTransientError(err, "failed to presign document for invoice %s", invoiceID)
	}
	return url, nil
}

func invoiceObjectName(invoiceID uuid.UUID) string {
	return fmt.Sprintf("%s.pdf", invoiceID)
}
