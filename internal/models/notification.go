package models

// InvoiceNotification is the payload handed to the notification worker after
// an invoice was generated. Never persisted; it exists to cross the message
// transport boundary, so the JSON field names are the wire contract. Amount
// and dueDate travel pre-rendered (two decimal places, RFC 3339) so every
// consumer displays the same values.
type InvoiceNotification struct {
	RecipientEmail string `json:"recipientEmail"`
	RecipientName  string `json:"recipientName"`
	InvoiceID      string `json:"invoiceId"`
	InvoiceNumber  string `json:"invoiceNumber"`
	Amount         string `json:"amount"`
	DueDate        string `json:"dueDate"`
	DocumentURL    string `json:"documentUrl"`
	Subject        string `json:"subject"`
	HTMLBody       string `json:"htmlBody"`
}
