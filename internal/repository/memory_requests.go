package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"atelier-commission/internal/domain"

	"github.com/google/uuid"
)

// MemoryRequestsRepository supports local development without a database and
// backs the service-level tests. Mutations take the write lock, so the
// conditional transitions are atomic the same way the SQL versions are.
type MemoryRequestsRepository struct {
	mu       sync.RWMutex
	requests map[string]domain.Request // requestID -> Request
}

func NewMemoryRequestsRepository() *MemoryRequestsRepository {
	return &MemoryRequestsRepository{requests: map[string]domain.Request{}}
}

var _ RequestsRepository = (*MemoryRequestsRepository)(nil)

func (r *MemoryRequestsRepository) CreateRequest(_ context.Context, req *domain.Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is required: %w", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *req
	if stored.RequestID == "" {
		stored.RequestID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = domain.RequestPending
	}
	if stored.SagaState == "" {
		stored.SagaState = domain.SagaNone
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.requests[stored.RequestID] = stored
	return stored.RequestID, nil
}

func (r *MemoryRequestsRepository) GetRequest(_ context.Context, requestID string) (*domain.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	copied := req
	return &copied, nil
}

func (r *MemoryRequestsRepository) GetRequestByOrderID(_ context.Context, orderID string) (*domain.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.requests {
		if req.OrderID == orderID {
			copied := req
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("request with order %s: %w", orderID, domain.ErrNotFound)
}

func (r *MemoryRequestsRepository) ListRequestsByCommission(_ context.Context, commissionID string) ([]*domain.Request, error) {
	return r.list(func(req domain.Request) bool { return req.CommissionID == commissionID }, false), nil
}

func (r *MemoryRequestsRepository) ListRequestsByUser(_ context.Context, userID string) ([]*domain.Request, error) {
	return r.list(func(req domain.Request) bool { return req.UserID == userID }, true), nil
}

func (r *MemoryRequestsRepository) list(match func(domain.Request) bool, newestFirst bool) []*domain.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Request{}
	for _, req := range r.requests {
		if match(req) {
			copied := req
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRequestsRepository) HasUserRequested(_ context.Context, userID, formID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.requests {
		if req.UserID == userID && req.FormID == formID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRequestsRepository) MarkRejected(_ context.Context, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	if req.Status.IsTerminal() {
		return fmt.Errorf("request %s is already %s: %w", requestID, req.Status, domain.ErrConflict)
	}
	now := time.Now()
	req.Status = domain.RequestRejected
	req.SagaState = domain.SagaCompleted
	req.DecidedAt = &now
	r.requests[requestID] = req
	return nil
}

func (r *MemoryRequestsRepository) MarkAccepted(_ context.Context, requestID, invoiceID, kanbanID, chatChannelURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	if req.Status.IsTerminal() {
		return fmt.Errorf("request %s is already %s: %w", requestID, req.Status, domain.ErrConflict)
	}
	now := time.Now()
	req.Status = domain.RequestAccepted
	req.SagaState = domain.SagaCompleted
	req.InvoiceID = &invoiceID
	req.KanbanID = &kanbanID
	req.ChatChannelURL = &chatChannelURL
	req.DecidedAt = &now
	r.requests[requestID] = req
	return nil
}

func (r *MemoryRequestsRepository) PromoteOldestWaitlisted(_ context.Context, commissionID string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *domain.Request
	for id := range r.requests {
		req := r.requests[id]
		if req.CommissionID != commissionID || req.Status != domain.RequestWaitlist {
			continue
		}
		if oldest == nil || req.CreatedAt.Before(oldest.CreatedAt) {
			copied := req
			oldest = &copied
		}
	}
	if oldest == nil {
		return nil, fmt.Errorf("no waitlisted request for commission %s: %w", commissionID, domain.ErrNotFound)
	}
	oldest.Status = domain.RequestPending
	r.requests[oldest.RequestID] = *oldest
	copied := *oldest
	return &copied, nil
}

// settleMarker records the settle direction and returns the marker's previous
// value. Counter settlement keys off the answer: none means a fresh settle,
// the opposite settled direction means the count must move between counters.
// A completed marker is a conflict.
func (r *MemoryRequestsRepository) settleMarker(requestID string, desired domain.SagaState) (domain.SagaState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return "", fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	prev := req.SagaState
	if prev == domain.SagaCompleted {
		return prev, fmt.Errorf("request %s decision already completed: %w", requestID, domain.ErrConflict)
	}
	if prev != desired {
		req.SagaState = desired
		r.requests[requestID] = req
	}
	return prev, nil
}
