package services

import (
	"fmt"
	"time"

	"billing-service/internal/models"
)

const displayDateLayout = "02 Jan 2006"

// BuildInvoiceNotification assembles the outbound notification payload for a
// freshly issued invoice. Deterministic for a given invoice and user so a
// redelivered message renders identically.
func BuildInvoiceNotification(user *models.User, invoice *models.Invoice, companyName string) *models.InvoiceNotification {
	return &models.InvoiceNotification{
		RecipientEmail: user.Email,
		RecipientName:  user.FullName,
		InvoiceID:      invoice.ID.String(),
		InvoiceNumber:  invoice.InvoiceNumber,
		Amount:         invoice.Amount.StringFixed(2),
		DueDate:        invoice.DueDate.UTC().Format(time.RFC3339),
		DocumentURL:    invoice.DocumentURL,
		Subject:        buildInvoiceSubject(invoice, companyName),
		HTMLBody:       buildInvoiceBody(user, invoice, companyName),
	}
}

func buildInvoiceSubject(invoice *models.Invoice, companyName string) string {
	return fmt.Sprintf("%s - Invoice %s due %s",
		companyName, invoice.InvoiceNumber, invoice.DueDate.UTC().Format(displayDateLayout))
}

func buildInvoiceBody(user *models.User, invoice *models.Invoice, companyName string) string {
	return fmt.Sprintf(`
		<html>
        <body>
            <h2>Your invoice is ready</h2>
            <p>Dear %s,</p>
            <p>Your invoice <strong>%s</strong> for the billing period %s to %s has been issued.</p>
            <p>Amount due: <strong>%s</strong></p>
            <p>Payment is due by <strong>%s</strong>.</p>
            <p>You can download your invoice here: <a href="%s">%s</a></p>
            <br>
            <p>Best regards,<br>%s</p>
        </body>
        </html>
		`,
		user.FullName,
		invoice.InvoiceNumber,
		invoice.PeriodStart.UTC().Format(displayDateLayout),
		invoice.PeriodEnd.UTC().Format(displayDateLayout),
		invoice.Amount.StringFixed(2),
		invoice.DueDate.UTC().Format(displayDateLayout),
		invoice.DocumentURL,
		invoice.InvoiceNumber,
		companyName)
}

// buildInvoiceNotes is the payment instruction block printed on the PDF.
func buildInvoiceNotes(invoice *models.Invoice) string {
	return fmt.Sprintf("Payment is due by %s. Please quote invoice number %s with your payment.",
		invoice.DueDate.UTC().Format(displayDateLayout), invoice.InvoiceNumber)
}
