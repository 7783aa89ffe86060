package repository

import (
	"context"

	"atelier-commission/internal/domain"
)

// CustomersRepository data access for billing customer bindings.
type CustomersRepository interface {
	// GetBinding returns domain.ErrNotFound when the (user, artist) pair has
	// no binding yet.
	GetBinding(ctx context.Context, userID, artistID string) (*domain.CustomerBinding, error)

	// InsertBinding inserts the binding. The store's unique constraint on
	// (user_id, artist_id) resolves concurrent first-time inserts: the loser's
	// insert is a no-op and the caller re-reads the winner's row.
	InsertBinding(ctx context.Context, binding *domain.CustomerBinding) error
}
