package domain

import "time"

// DefaultKanbanContainers the fixed container titles every board is created
// with, in order.
var DefaultKanbanContainers = []string{"Todo", "In Progress", "Done"}

// KanbanBoard is the task board provisioned for an accepted request.
// Unique on request_id: one board per request.
type KanbanBoard struct {
	KanbanID   string            `json:"kanban_id"`
	RequestID  string            `json:"request_id"`
	Containers []KanbanContainer `json:"containers"`
	CreatedAt  time.Time         `json:"created_at"`
}

// KanbanContainer an ordered column on a board.
type KanbanContainer struct {
	ContainerID string `json:"container_id"`
	Title       string `json:"title"`
	Position    int    `json:"position"`
}
