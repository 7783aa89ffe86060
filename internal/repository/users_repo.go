package repository

import (
	"context"

	"atelier-commission/internal/domain"
)

// UsersRepository read access to platform accounts. User management itself is
// owned by another service; the orchestrator only needs names, emails and the
// artist's billing account.
type UsersRepository interface {
	// GetUser returns domain.ErrNotFound when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}
