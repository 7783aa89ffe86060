package repository

import (
	"context"

	"atelier-commission/internal/domain"
)

// AdmitOutcome result of an atomic admission at the store.
type AdmitOutcome struct {
	// Status the admitted status computed from the post-increment count:
	// waitlist when the count exceeds max_until_waitlist, otherwise pending.
	Status domain.RequestStatus
	// Availability commission availability after the admission (may have
	// flipped to waitlist or closed as a side effect).
	Availability domain.Availability
	// NewRequests post-increment counter value.
	NewRequests int
}

// CommissionsRepository data access for commissions. The counter-mutating
// methods are single atomic store operations (conditional UPDATE); they never
// read-modify-write in application memory, so concurrent calls against the
// same commission cannot lose updates.
type CommissionsRepository interface {
	// GetCommission returns domain.ErrNotFound when the commission is absent.
	GetCommission(ctx context.Context, commissionID string) (*domain.Commission, error)

	// ListCommissionsByArtist returns the artist's commissions ordered by title.
	ListCommissionsByArtist(ctx context.Context, artistID string) ([]*domain.Commission, error)

	// AdmitRequest atomically increments new_requests, flips availability when
	// the post-increment count crosses max_until_waitlist/max_until_closed, and
	// persists the request row with the admitted status, all in one store
	// transaction: a failed insert cannot strand a counted slot. On success the
	// request's Status and SagaState are filled in. Returns
	// domain.ErrAdmissionClosed when availability is already closed (the
	// increment and the flip are one conditional statement, so a concurrent
	// close cannot be raced past).
	AdmitRequest(ctx context.Context, req *domain.Request) (*AdmitOutcome, error)

	// SettleDecision atomically moves one request out of new_requests into
	// accepted_requests or rejected_requests, guarded by the request's saga
	// state so a retried decision settles the counters exactly once. The saga
	// state records the settled direction; a retry that flips the decision
	// moves the count to the other counter instead of skipping settlement.
	SettleDecision(ctx context.Context, commissionID, requestID string, accepted bool) error
}
