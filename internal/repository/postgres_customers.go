package repository

import (
	"context"
	"database/sql"
	"fmt"

	"atelier-commission/internal/domain"
)

// PostgresCustomersRepository customer binding data access on PostgreSQL.
type PostgresCustomersRepository struct {
	db *sql.DB
}

func NewPostgresCustomersRepository(db *sql.DB) *PostgresCustomersRepository {
	return &PostgresCustomersRepository{db: db}
}

var _ CustomersRepository = (*PostgresCustomersRepository)(nil)

func (r *PostgresCustomersRepository) GetBinding(ctx context.Context, userID, artistID string) (*domain.CustomerBinding, error) {
	if userID == "" || artistID == "" {
		return nil, fmt.Errorf("user_id and artist_id are required: %w", domain.ErrValidation)
	}

	var b domain.CustomerBinding
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id::text, artist_id::text, customer_id, payment_account_id, created_at
		FROM customer_bindings
		WHERE user_id = $1::uuid AND artist_id = $2::uuid
	`, userID, artistID).Scan(&b.UserID, &b.ArtistID, &b.CustomerID, &b.PaymentAccountID, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("customer binding for user %s and artist %s: %w", userID, artistID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer binding: %w: %w", err, domain.ErrPersistence)
	}
	return &b, nil
}

// InsertBinding relies on the unique index on (user_id, artist_id): the loser
// of a concurrent first-time insert becomes a no-op and re-reads the winner.
func (r *PostgresCustomersRepository) InsertBinding(ctx context.Context, binding *domain.CustomerBinding) error {
	if binding == nil {
		return fmt.Errorf("binding is required: %w", domain.ErrValidation)
	}
	if binding.UserID == "" || binding.ArtistID == "" || binding.CustomerID == "" {
		return fmt.Errorf("user_id, artist_id and customer_id are required: %w", domain.ErrValidation)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customer_bindings (user_id, artist_id, customer_id, payment_account_id)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		ON CONFLICT (user_id, artist_id) DO NOTHING
	`, binding.UserID, binding.ArtistID, binding.CustomerID, binding.PaymentAccountID)
	if err != nil {
		return fmt.Errorf("failed to insert customer binding: %w: %w", err, domain.ErrPersistence)
	}
	return nil
}
