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

// MemoryCommissionsRepository supports local development without a database
// and backs the service-level tests, including the concurrent-admission ones:
// AdmitRequest and SettleDecision run under the write lock, mirroring the
// atomicity the SQL implementation gets from conditional UPDATEs.
type MemoryCommissionsRepository struct {
	mu          sync.RWMutex
	commissions map[string]domain.Commission // commissionID -> Commission
	requests    *MemoryRequestsRepository    // row insert for AdmitRequest, saga marker for SettleDecision
}

func NewMemoryCommissionsRepository(requests *MemoryRequestsRepository) *MemoryCommissionsRepository {
	return &MemoryCommissionsRepository{
		commissions: map[string]domain.Commission{},
		requests:    requests,
	}
}

var _ CommissionsRepository = (*MemoryCommissionsRepository)(nil)

// SeedCommission inserts a commission, generating an id when absent.
func (r *MemoryCommissionsRepository) SeedCommission(c domain.Commission) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.CommissionID == "" {
		c.CommissionID = uuid.NewString()
	}
	if c.Availability == "" {
		c.Availability = domain.AvailabilityOpen
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.commissions[c.CommissionID] = c
	return c.CommissionID
}

func (r *MemoryCommissionsRepository) GetCommission(_ context.Context, commissionID string) (*domain.Commission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.commissions[commissionID]
	if !ok {
		return nil, fmt.Errorf("commission %s: %w", commissionID, domain.ErrNotFound)
	}
	copied := c
	return &copied, nil
}

func (r *MemoryCommissionsRepository) ListCommissionsByArtist(_ context.Context, artistID string) ([]*domain.Commission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Commission{}
	for _, c := range r.commissions {
		if c.ArtistID == artistID {
			copied := c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *MemoryCommissionsRepository) AdmitRequest(ctx context.Context, req *domain.Request) (*AdmitOutcome, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required: %w", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.commissions[req.CommissionID]
	if !ok {
		return nil, fmt.Errorf("commission %s: %w", req.CommissionID, domain.ErrNotFound)
	}
	if c.Availability == domain.AvailabilityClosed {
		return nil, fmt.Errorf("commission %s: %w", req.CommissionID, domain.ErrAdmissionClosed)
	}

	before := c
	c.NewRequests++
	switch {
	case c.NewRequests > c.MaxUntilClosed:
		c.Availability = domain.AvailabilityClosed
	case c.NewRequests > c.MaxUntilWaitlist:
		c.Availability = domain.AvailabilityWaitlist
	}
	r.commissions[req.CommissionID] = c

	status := domain.RequestPending
	if c.NewRequests > c.MaxUntilWaitlist {
		status = domain.RequestWaitlist
	}
	req.Status = status
	req.SagaState = domain.SagaNone
	if _, err := r.requests.CreateRequest(ctx, req); err != nil {
		// undo the bump so a rejected insert leaves no counted slot behind
		r.commissions[req.CommissionID] = before
		return nil, err
	}

	return &AdmitOutcome{
		Status:       status,
		Availability: c.Availability,
		NewRequests:  c.NewRequests,
	}, nil
}

func (r *MemoryCommissionsRepository) SettleDecision(_ context.Context, commissionID, requestID string, accepted bool) error {
	desired := domain.SettledSagaState(accepted)
	prev, err := r.requests.settleMarker(requestID, desired)
	if err != nil {
		return err
	}
	if prev == desired {
		// A prior attempt already settled in this direction.
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.commissions[commissionID]
	if !ok {
		return fmt.Errorf("commission %s: %w", commissionID, domain.ErrNotFound)
	}
	if prev == domain.SagaNone {
		c.NewRequests--
		if accepted {
			c.AcceptedRequests++
		} else {
			c.RejectedRequests++
		}
	} else {
		// direction flipped after a failed attempt: move the settled count
		if accepted {
			c.AcceptedRequests++
			c.RejectedRequests--
		} else {
			c.AcceptedRequests--
			c.RejectedRequests++
		}
	}
	r.commissions[commissionID] = c
	return nil
}
