package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atelier-commission/internal/domain"

	"github.com/google/uuid"
)

// MemoryInvoicesRepository in-memory invoice drafts, unique per request.
type MemoryInvoicesRepository struct {
	mu    sync.RWMutex
	byReq map[string]domain.Invoice // requestID -> Invoice
}

func NewMemoryInvoicesRepository() *MemoryInvoicesRepository {
	return &MemoryInvoicesRepository{byReq: map[string]domain.Invoice{}}
}

var _ InvoicesRepository = (*MemoryInvoicesRepository)(nil)

func (r *MemoryInvoicesRepository) GetInvoiceByRequest(_ context.Context, requestID string) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.byReq[requestID]
	if !ok {
		return nil, fmt.Errorf("invoice for request %s: %w", requestID, domain.ErrNotFound)
	}
	copied := inv
	return &copied, nil
}

func (r *MemoryInvoicesRepository) CreateDraft(_ context.Context, invoice *domain.Invoice) (string, error) {
	if invoice == nil {
		return "", fmt.Errorf("invoice is required: %w", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byReq[invoice.RequestID]; ok {
		return "", fmt.Errorf("invoice %s already exists for request %s: %w",
			existing.InvoiceID, invoice.RequestID, domain.ErrPersistence)
	}

	stored := *invoice
	if stored.InvoiceID == "" {
		stored.InvoiceID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = domain.InvoiceCreating
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	for i := range stored.Items {
		if stored.Items[i].ItemID == "" {
			stored.Items[i].ItemID = uuid.NewString()
		}
	}
	r.byReq[stored.RequestID] = stored
	return stored.InvoiceID, nil
}
