package repository

import (
	"context"
	"database/sql"
	"fmt"

	"atelier-commission/internal/domain"
)

// PostgresCommissionsRepository commissions data access on PostgreSQL.
// Counter mutations are single conditional UPDATE statements so concurrent
// admissions and decisions on the same commission cannot lose updates.
type PostgresCommissionsRepository struct {
	db *sql.DB
}

func NewPostgresCommissionsRepository(db *sql.DB) *PostgresCommissionsRepository {
	return &PostgresCommissionsRepository{db: db}
}

var _ CommissionsRepository = (*PostgresCommissionsRepository)(nil)

const commissionColumns = `
	commission_id::text,
	artist_id::text,
	title,
	slug,
	price,
	currency,
	availability,
	new_requests,
	accepted_requests,
	rejected_requests,
	max_until_waitlist,
	max_until_closed,
	created_at`

func scanCommission(row interface{ Scan(...any) error }) (*domain.Commission, error) {
	var c domain.Commission
	err := row.Scan(
		&c.CommissionID,
		&c.ArtistID,
		&c.Title,
		&c.Slug,
		&c.Price,
		&c.Currency,
		&c.Availability,
		&c.NewRequests,
		&c.AcceptedRequests,
		&c.RejectedRequests,
		&c.MaxUntilWaitlist,
		&c.MaxUntilClosed,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCommissionsRepository) GetCommission(ctx context.Context, commissionID string) (*domain.Commission, error) {
	if commissionID == "" {
		return nil, fmt.Errorf("commission_id is required: %w", domain.ErrValidation)
	}

	query := fmt.Sprintf(`SELECT %s FROM commissions WHERE commission_id = $1::uuid`, commissionColumns)
	c, err := scanCommission(r.db.QueryRowContext(ctx, query, commissionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("commission %s: %w", commissionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get commission: %w: %w", err, domain.ErrPersistence)
	}
	return c, nil
}

func (r *PostgresCommissionsRepository) ListCommissionsByArtist(ctx context.Context, artistID string) ([]*domain.Commission, error) {
	if artistID == "" {
		return nil, fmt.Errorf("artist_id is required: %w", domain.ErrValidation)
	}

	query := fmt.Sprintf(`SELECT %s FROM commissions WHERE artist_id = $1::uuid ORDER BY title`, commissionColumns)
	rows, err := r.db.QueryContext(ctx, query, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w: %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	commissions := []*domain.Commission{}
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission: %w: %w", err, domain.ErrPersistence)
		}
		commissions = append(commissions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commissions: %w: %w", err, domain.ErrPersistence)
	}
	return commissions, nil
}

// AdmitRequest bumps new_requests and flips availability in one conditional
// statement, then inserts the request row in the same transaction: a failed
// insert rolls the counter back instead of stranding a counted slot. The
// admitted status is computed from the post-increment count: counts above
// max_until_waitlist land on the waitlist.
func (r *PostgresCommissionsRepository) AdmitRequest(ctx context.Context, req *domain.Request) (*AdmitOutcome, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required: %w", domain.ErrValidation)
	}
	if req.CommissionID == "" || req.RequestID == "" {
		return nil, fmt.Errorf("commission_id and request_id are required: %w", domain.ErrValidation)
	}
	content := "{}"
	if len(req.Content) > 0 {
		content = string(req.Content)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin admit transaction: %w: %w", err, domain.ErrPersistence)
	}
	defer tx.Rollback()

	var (
		newRequests      int
		availability     string
		maxUntilWaitlist int
	)
	err = tx.QueryRowContext(ctx, `
		UPDATE commissions
		SET new_requests = new_requests + 1,
		    availability = CASE
		        WHEN new_requests + 1 > max_until_closed THEN 'closed'
		        WHEN new_requests + 1 > max_until_waitlist THEN 'waitlist'
		        ELSE availability
		    END
		WHERE commission_id = $1::uuid AND availability <> 'closed'
		RETURNING new_requests, availability, max_until_waitlist
	`, req.CommissionID).Scan(&newRequests, &availability, &maxUntilWaitlist)
	if err == sql.ErrNoRows {
		tx.Rollback()
		// Either the commission is gone or it closed under us; tell them apart.
		var current string
		err = r.db.QueryRowContext(ctx,
			`SELECT availability FROM commissions WHERE commission_id = $1::uuid`,
			req.CommissionID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("commission %s: %w", req.CommissionID, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check commission availability: %w: %w", err, domain.ErrPersistence)
		}
		return nil, fmt.Errorf("commission %s: %w", req.CommissionID, domain.ErrAdmissionClosed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to admit request: %w: %w", err, domain.ErrPersistence)
	}

	status := domain.RequestPending
	if newRequests > maxUntilWaitlist {
		status = domain.RequestWaitlist
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO requests (request_id, commission_id, user_id, form_id, order_id, content, status, saga_state)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6::jsonb, $7, 'none')
	`, req.RequestID, req.CommissionID, req.UserID, req.FormID, req.OrderID, content, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to insert admitted request: %w: %w", err, domain.ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit admit transaction: %w: %w", err, domain.ErrPersistence)
	}

	req.Status = status
	req.SagaState = domain.SagaNone
	return &AdmitOutcome{
		Status:       status,
		Availability: domain.Availability(availability),
		NewRequests:  newRequests,
	}, nil
}

// SettleDecision adjusts the counters exactly once per request: the request's
// saga_state records the settled direction in the same transaction. A retry in
// the same direction skips the counter update; a retry that flips the decision
// after a failed attempt moves the already-settled count to the other counter.
func (r *PostgresCommissionsRepository) SettleDecision(ctx context.Context, commissionID, requestID string, accepted bool) error {
	if commissionID == "" || requestID == "" {
		return fmt.Errorf("commission_id and request_id are required: %w", domain.ErrValidation)
	}
	desired := domain.SettledSagaState(accepted)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settle transaction: %w: %w", err, domain.ErrPersistence)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE requests
		SET saga_state = $2
		WHERE request_id = $1::uuid AND saga_state = 'none'
	`, requestID, string(desired))
	if err != nil {
		return fmt.Errorf("failed to advance saga state: %w: %w", err, domain.ErrPersistence)
	}
	advanced, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w: %w", err, domain.ErrPersistence)
	}
	if advanced == 0 {
		return r.resettle(ctx, tx, commissionID, requestID, accepted)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE commissions
		SET new_requests = new_requests - 1,
		    accepted_requests = accepted_requests + CASE WHEN $2 THEN 1 ELSE 0 END,
		    rejected_requests = rejected_requests + CASE WHEN $2 THEN 0 ELSE 1 END
		WHERE commission_id = $1::uuid
	`, commissionID, accepted)
	if err != nil {
		return fmt.Errorf("failed to settle commission counters: %w: %w", err, domain.ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settle transaction: %w: %w", err, domain.ErrPersistence)
	}
	return nil
}

// resettle handles a request whose marker already left 'none'. Same direction
// is a no-op; the opposite direction moves the count between accepted_requests
// and rejected_requests and rewrites the marker, still in one transaction.
func (r *PostgresCommissionsRepository) resettle(ctx context.Context, tx *sql.Tx, commissionID, requestID string, accepted bool) error {
	desired := domain.SettledSagaState(accepted)

	var current string
	err := tx.QueryRowContext(ctx, `
		SELECT saga_state FROM requests WHERE request_id = $1::uuid FOR UPDATE
	`, requestID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read saga state: %w: %w", err, domain.ErrPersistence)
	}

	switch domain.SagaState(current) {
	case desired:
		// A prior attempt already settled in this direction.
		return tx.Commit()
	case domain.SettledSagaState(!accepted):
	default:
		return fmt.Errorf("request %s decision already completed: %w", requestID, domain.ErrConflict)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE commissions
		SET accepted_requests = accepted_requests + CASE WHEN $2 THEN 1 ELSE -1 END,
		    rejected_requests = rejected_requests + CASE WHEN $2 THEN -1 ELSE 1 END
		WHERE commission_id = $1::uuid
	`, commissionID, accepted)
	if err != nil {
		return fmt.Errorf("failed to move settled counters: %w: %w", err, domain.ErrPersistence)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE requests SET saga_state = $2 WHERE request_id = $1::uuid
	`, requestID, string(desired))
	if err != nil {
		return fmt.Errorf("failed to rewrite saga state: %w: %w", err, domain.ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settle transaction: %w: %w", err, domain.ErrPersistence)
	}
	return nil
}
