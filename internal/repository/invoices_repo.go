package repository

import (
	"context"

	"atelier-commission/internal/domain"
)

// InvoicesRepository data access for invoice drafts.
type InvoicesRepository interface {
	// GetInvoiceByRequest returns domain.ErrNotFound when no draft exists for
	// the request. The decision saga checks this before drafting so a retry
	// reuses the existing draft instead of creating a duplicate billable one.
	GetInvoiceByRequest(ctx context.Context, requestID string) (*domain.Invoice, error)

	// CreateDraft inserts the invoice and its items in one transaction and
	// returns the invoice id. invoices(request_id) is unique.
	CreateDraft(ctx context.Context, invoice *domain.Invoice) (string, error)
}
