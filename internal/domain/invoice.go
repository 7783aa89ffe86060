package domain

import "time"

// InvoiceStatus billing lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceCreating InvoiceStatus = "creating"
	InvoiceSent     InvoiceStatus = "sent"
	InvoicePaid     InvoiceStatus = "paid"
)

// Invoice is the local record of a billing-side invoice draft.
// Unique on request_id: one invoice per accepted request.
type Invoice struct {
	InvoiceID  string        `json:"invoice_id"`
	RequestID  string        `json:"request_id"`
	BillingID  string        `json:"billing_id"` // billing-side invoice id
	CustomerID string        `json:"customer_id"`
	Status     InvoiceStatus `json:"status"`
	Items      []InvoiceItem `json:"items"`
	CreatedAt  time.Time     `json:"created_at"`
}

// InvoiceItem a single invoice line.
type InvoiceItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}
