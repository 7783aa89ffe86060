package domain

import (
	"encoding/json"
	"time"
)

// RequestStatus lifecycle state of a commission request.
// Transitions are one-directional: pending/waitlist -> accepted|rejected.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestWaitlist RequestStatus = "waitlist"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// SagaState durable progress marker for the decision saga. It exists so a
// crashed-and-retried decision is observable in the store instead of only
// implicit in collaborator idempotency. The settled states carry the decision
// direction: a retry that flips the decision after a failed attempt must move
// the already-settled count to the other counter, not skip settlement.
type SagaState string

const (
	// SagaNone no decision step has run yet.
	SagaNone SagaState = "none"
	// SagaSettledAccept commission counters were adjusted as an accept.
	SagaSettledAccept SagaState = "settled_accept"
	// SagaSettledReject commission counters were adjusted as a reject.
	SagaSettledReject SagaState = "settled_reject"
	// SagaCompleted terminal status was committed.
	SagaCompleted SagaState = "completed"
)

// SettledSagaState returns the settled marker for a decision direction.
func SettledSagaState(accepted bool) SagaState {
	if accepted {
		return SagaSettledAccept
	}
	return SagaSettledReject
}

// Request is a client's submission against a commission's capacity.
// InvoiceID/KanbanID/ChatChannelURL are non-nil iff Status == accepted.
type Request struct {
	RequestID      string          `json:"request_id"`
	CommissionID   string          `json:"commission_id"`
	UserID         string          `json:"user_id"`
	FormID         string          `json:"form_id"`
	OrderID        string          `json:"order_id"` // external correlation id, unique
	Content        json.RawMessage `json:"content"`  // opaque form-answer blob
	Status         RequestStatus   `json:"status"`
	SagaState      SagaState       `json:"saga_state"`
	InvoiceID      *string         `json:"invoice_id,omitempty"`
	KanbanID       *string         `json:"kanban_id,omitempty"`
	ChatChannelURL *string         `json:"chat_channel_url,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
}
