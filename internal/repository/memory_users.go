package repository

import (
	"context"
	"fmt"
	"sync"

	"atelier-commission/internal/domain"

	"github.com/google/uuid"
)

// MemoryUsersRepository in-memory platform accounts for development and tests.
type MemoryUsersRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User // userID -> User
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: map[string]domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

// SeedUser inserts a user, generating an id when absent.
func (r *MemoryUsersRepository) SeedUser(u domain.User) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	r.users[u.UserID] = u
	return u.UserID
}

func (r *MemoryUsersRepository) GetUser(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	copied := u
	return &copied, nil
}
