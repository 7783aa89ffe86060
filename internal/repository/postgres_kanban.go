package repository

import (
	"context"
	"database/sql"
	"fmt"

	"atelier-commission/internal/domain"

	"github.com/google/uuid"
)

// PostgresKanbanRepository task board data access on PostgreSQL.
type PostgresKanbanRepository struct {
	db *sql.DB
}

func NewPostgresKanbanRepository(db *sql.DB) *PostgresKanbanRepository {
	return &PostgresKanbanRepository{db: db}
}

var _ KanbanRepository = (*PostgresKanbanRepository)(nil)

func (r *PostgresKanbanRepository) GetBoardByRequest(ctx context.Context, requestID string) (*domain.KanbanBoard, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}

	var board domain.KanbanBoard
	err := r.db.QueryRowContext(ctx, `
		SELECT kanban_id::text, request_id::text, created_at
		FROM kanban_boards
		WHERE request_id = $1::uuid
	`, requestID).Scan(&board.KanbanID, &board.RequestID, &board.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("kanban board for request %s: %w", requestID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get kanban board: %w: %w", err, domain.ErrPersistence)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT container_id::text, title, position
		FROM kanban_containers
		WHERE kanban_id = $1::uuid
		ORDER BY position
	`, board.KanbanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list kanban containers: %w: %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.KanbanContainer
		if err := rows.Scan(&c.ContainerID, &c.Title, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan kanban container: %w: %w", err, domain.ErrPersistence)
		}
		board.Containers = append(board.Containers, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kanban containers: %w: %w", err, domain.ErrPersistence)
	}
	return &board, nil
}

func (r *PostgresKanbanRepository) CreateBoard(ctx context.Context, requestID string, containerTitles []string) (*domain.KanbanBoard, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}
	if len(containerTitles) == 0 {
		return nil, fmt.Errorf("container titles are required: %w", domain.ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin kanban transaction: %w: %w", err, domain.ErrPersistence)
	}
	defer tx.Rollback()

	board := &domain.KanbanBoard{
		KanbanID:  uuid.NewString(),
		RequestID: requestID,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO kanban_boards (kanban_id, request_id)
		VALUES ($1::uuid, $2::uuid)
		RETURNING created_at
	`, board.KanbanID, requestID).Scan(&board.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert kanban board: %w: %w", err, domain.ErrPersistence)
	}

	for i, title := range containerTitles {
		c := domain.KanbanContainer{
			ContainerID: uuid.NewString(),
			Title:       title,
			Position:    i,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO kanban_containers (container_id, kanban_id, title, position)
			VALUES ($1::uuid, $2::uuid, $3, $4)
		`, c.ContainerID, board.KanbanID, c.Title, c.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to insert kanban container: %w: %w", err, domain.ErrPersistence)
		}
		board.Containers = append(board.Containers, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit kanban transaction: %w: %w", err, domain.ErrPersistence)
	}
	return board, nil
}
