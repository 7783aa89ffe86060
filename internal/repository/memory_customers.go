package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atelier-commission/internal/domain"
)

// MemoryCustomersRepository in-memory customer bindings with first-insert-wins
// semantics matching the SQL unique constraint.
type MemoryCustomersRepository struct {
	mu       sync.RWMutex
	bindings map[string]domain.CustomerBinding // userID+"/"+artistID -> binding
}

func NewMemoryCustomersRepository() *MemoryCustomersRepository {
	return &MemoryCustomersRepository{bindings: map[string]domain.CustomerBinding{}}
}

var _ CustomersRepository = (*MemoryCustomersRepository)(nil)

func bindingKey(userID, artistID string) string {
	return userID + "/" + artistID
}

func (r *MemoryCustomersRepository) GetBinding(_ context.Context, userID, artistID string) (*domain.CustomerBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[bindingKey(userID, artistID)]
	if !ok {
		return nil, fmt.Errorf("customer binding for user %s and artist %s: %w", userID, artistID, domain.ErrNotFound)
	}
	copied := b
	return &copied, nil
}

func (r *MemoryCustomersRepository) InsertBinding(_ context.Context, binding *domain.CustomerBinding) error {
	if binding == nil {
		return fmt.Errorf("binding is required: %w", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := bindingKey(binding.UserID, binding.ArtistID)
	if _, exists := r.bindings[key]; exists {
		// first insert wins, matching ON CONFLICT DO NOTHING
		return nil
	}
	stored := *binding
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.bindings[key] = stored
	return nil
}
