package repository

import (
	"context"

	"atelier-commission/internal/domain"
)

// RequestsRepository data access for commission requests. Request rows are
// inserted by CommissionsRepository.AdmitRequest inside the admission
// transaction, mutated only by the decision saga and never deleted.
type RequestsRepository interface {
	// GetRequest returns domain.ErrNotFound when absent.
	GetRequest(ctx context.Context, requestID string) (*domain.Request, error)

	// GetRequestByOrderID looks a request up by its external correlation id.
	GetRequestByOrderID(ctx context.Context, orderID string) (*domain.Request, error)

	ListRequestsByCommission(ctx context.Context, commissionID string) ([]*domain.Request, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]*domain.Request, error)

	// HasUserRequested reports whether the user already submitted against the form.
	HasUserRequested(ctx context.Context, userID, formID string) (bool, error)

	// MarkRejected commits status=rejected. Conditional on the request still
	// being non-terminal; returns domain.ErrConflict otherwise.
	MarkRejected(ctx context.Context, requestID string) error

	// MarkAccepted commits status=accepted together with the sub-resource
	// references in one write, the saga's commit point. Conditional on the
	// request still being non-terminal; returns domain.ErrConflict otherwise.
	MarkAccepted(ctx context.Context, requestID, invoiceID, kanbanID, chatChannelURL string) error

	// PromoteOldestWaitlisted flips the oldest waitlisted request of the
	// commission to pending and returns it, or domain.ErrNotFound when the
	// waitlist is empty. Used by the promote-on-reject policy.
	PromoteOldestWaitlisted(ctx context.Context, commissionID string) (*domain.Request, error)
}
