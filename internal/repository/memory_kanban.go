package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atelier-commission/internal/domain"

	"github.com/google/uuid"
)

// MemoryKanbanRepository in-memory task boards, unique per request.
type MemoryKanbanRepository struct {
	mu    sync.RWMutex
	byReq map[string]domain.KanbanBoard // requestID -> board
}

func NewMemoryKanbanRepository() *MemoryKanbanRepository {
	return &MemoryKanbanRepository{byReq: map[string]domain.KanbanBoard{}}
}

var _ KanbanRepository = (*MemoryKanbanRepository)(nil)

func (r *MemoryKanbanRepository) GetBoardByRequest(_ context.Context, requestID string) (*domain.KanbanBoard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	board, ok := r.byReq[requestID]
	if !ok {
		return nil, fmt.Errorf("kanban board for request %s: %w", requestID, domain.ErrNotFound)
	}
	copied := board
	copied.Containers = append([]domain.KanbanContainer(nil), board.Containers...)
	return &copied, nil
}

func (r *MemoryKanbanRepository) CreateBoard(_ context.Context, requestID string, containerTitles []string) (*domain.KanbanBoard, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byReq[requestID]; ok {
		return nil, fmt.Errorf("kanban board %s already exists for request %s: %w",
			existing.KanbanID, requestID, domain.ErrPersistence)
	}

	board := domain.KanbanBoard{
		KanbanID:  uuid.NewString(),
		RequestID: requestID,
		CreatedAt: time.Now(),
	}
	for i, title := range containerTitles {
		board.Containers = append(board.Containers, domain.KanbanContainer{
			ContainerID: uuid.NewString(),
			Title:       title,
			Position:    i,
		})
	}
	r.byReq[requestID] = board

	copied := board
	copied.Containers = append([]domain.KanbanContainer(nil), board.Containers...)
	return &copied, nil
}
