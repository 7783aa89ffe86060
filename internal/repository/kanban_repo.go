package repository

import (
	"context"

	"atelier-commission/internal/domain"
)

// KanbanRepository data access for request task boards.
type KanbanRepository interface {
	// GetBoardByRequest returns domain.ErrNotFound when the request has no
	// board yet.
	GetBoardByRequest(ctx context.Context, requestID string) (*domain.KanbanBoard, error)

	// CreateBoard inserts the board with the given container titles in order,
	// in one transaction. kanban_boards(request_id) is unique.
	CreateBoard(ctx context.Context, requestID string, containerTitles []string) (*domain.KanbanBoard, error)
}
