package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"atelier-commission/internal/domain"
)

// PostgresRequestsRepository requests data access on PostgreSQL.
type PostgresRequestsRepository struct {
	db *sql.DB
}

func NewPostgresRequestsRepository(db *sql.DB) *PostgresRequestsRepository {
	return &PostgresRequestsRepository{db: db}
}

var _ RequestsRepository = (*PostgresRequestsRepository)(nil)

const requestColumns = `
	request_id::text,
	commission_id::text,
	user_id::text,
	form_id,
	order_id,
	COALESCE(content, '{}'::jsonb) as content,
	status,
	saga_state,
	invoice_id::text,
	kanban_id::text,
	chat_channel_url,
	created_at,
	decided_at`

func scanRequest(row interface{ Scan(...any) error }) (*domain.Request, error) {
	var (
		req            domain.Request
		content        json.RawMessage
		invoiceID      sql.NullString
		kanbanID       sql.NullString
		chatChannelURL sql.NullString
		decidedAt      sql.NullTime
	)
	err := row.Scan(
		&req.RequestID,
		&req.CommissionID,
		&req.UserID,
		&req.FormID,
		&req.OrderID,
		&content,
		&req.Status,
		&req.SagaState,
		&invoiceID,
		&kanbanID,
		&chatChannelURL,
		&req.CreatedAt,
		&decidedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Content = content
	if invoiceID.Valid {
		req.InvoiceID = &invoiceID.String
	}
	if kanbanID.Valid {
		req.KanbanID = &kanbanID.String
	}
	if chatChannelURL.Valid {
		req.ChatChannelURL = &chatChannelURL.String
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	return &req, nil
}

func (r *PostgresRequestsRepository) GetRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE request_id = $1::uuid`, requestColumns)
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request: %w: %w", err, domain.ErrPersistence)
	}
	return req, nil
}

func (r *PostgresRequestsRepository) GetRequestByOrderID(ctx context.Context, orderID string) (*domain.Request, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order_id is required: %w", domain.ErrValidation)
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE order_id = $1`, requestColumns)
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("request with order %s: %w", orderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request by order: %w: %w", err, domain.ErrPersistence)
	}
	return req, nil
}

func (r *PostgresRequestsRepository) ListRequestsByCommission(ctx context.Context, commissionID string) ([]*domain.Request, error) {
	if commissionID == "" {
		return nil, fmt.Errorf("commission_id is required: %w", domain.ErrValidation)
	}
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE commission_id = $1::uuid ORDER BY created_at`, requestColumns)
	return r.listRequests(ctx, query, commissionID)
}

func (r *PostgresRequestsRepository) ListRequestsByUser(ctx context.Context, userID string) ([]*domain.Request, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrValidation)
	}
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE user_id = $1::uuid ORDER BY created_at DESC`, requestColumns)
	return r.listRequests(ctx, query, userID)
}

func (r *PostgresRequestsRepository) listRequests(ctx context.Context, query string, arg any) ([]*domain.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w: %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	requests := []*domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w: %w", err, domain.ErrPersistence)
		}
		requests = append(requests, req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w: %w", err, domain.ErrPersistence)
	}
	return requests, nil
}

func (r *PostgresRequestsRepository) HasUserRequested(ctx context.Context, userID, formID string) (bool, error) {
	if userID == "" || formID == "" {
		return false, fmt.Errorf("user_id and form_id are required: %w", domain.ErrValidation)
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM requests WHERE user_id = $1::uuid AND form_id = $2)`,
		userID, formID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user requested: %w: %w", err, domain.ErrPersistence)
	}
	return exists, nil
}

func (r *PostgresRequestsRepository) MarkRejected(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE requests
		SET status = 'rejected', saga_state = 'completed', decided_at = NOW()
		WHERE request_id = $1::uuid AND status IN ('pending', 'waitlist')
	`, requestID)
	if err != nil {
		return fmt.Errorf("failed to mark request rejected: %w: %w", err, domain.ErrPersistence)
	}
	return r.requireTransition(ctx, res, requestID)
}

// MarkAccepted is the saga commit point: terminal status and all sub-resource
// references land in one conditional write.
func (r *PostgresRequestsRepository) MarkAccepted(ctx context.Context, requestID, invoiceID, kanbanID, chatChannelURL string) error {
	if requestID == "" {
		return fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}
	if invoiceID == "" || kanbanID == "" || chatChannelURL == "" {
		return fmt.Errorf("invoice_id, kanban_id and chat_channel_url are required: %w", domain.ErrValidation)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE requests
		SET status = 'accepted',
		    saga_state = 'completed',
		    invoice_id = $2::uuid,
		    kanban_id = $3::uuid,
		    chat_channel_url = $4,
		    decided_at = NOW()
		WHERE request_id = $1::uuid AND status IN ('pending', 'waitlist')
	`, requestID, invoiceID, kanbanID, chatChannelURL)
	if err != nil {
		return fmt.Errorf("failed to mark request accepted: %w: %w", err, domain.ErrPersistence)
	}
	return r.requireTransition(ctx, res, requestID)
}

// requireTransition distinguishes "request gone" from "already terminal" when
// a conditional terminal write matched no rows.
func (r *PostgresRequestsRepository) requireTransition(ctx context.Context, res sql.Result, requestID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w: %w", err, domain.ErrPersistence)
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM requests WHERE request_id = $1::uuid`, requestID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check request status: %w: %w", err, domain.ErrPersistence)
	}
	return fmt.Errorf("request %s is already %s: %w", requestID, status, domain.ErrConflict)
}

func (r *PostgresRequestsRepository) PromoteOldestWaitlisted(ctx context.Context, commissionID string) (*domain.Request, error) {
	if commissionID == "" {
		return nil, fmt.Errorf("commission_id is required: %w", domain.ErrValidation)
	}

	query := fmt.Sprintf(`
		UPDATE requests
		SET status = 'pending'
		WHERE request_id = (
		    SELECT request_id FROM requests
		    WHERE commission_id = $1::uuid AND status = 'waitlist'
		    ORDER BY created_at ASC
		    LIMIT 1
		    FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, requestColumns)

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, commissionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no waitlisted request for commission %s: %w", commissionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to promote waitlisted request: %w: %w", err, domain.ErrPersistence)
	}
	return req, nil
}
