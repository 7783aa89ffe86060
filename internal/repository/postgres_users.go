package repository

import (
	"context"
	"database/sql"
	"fmt"

	"atelier-commission/internal/domain"
)

// PostgresUsersRepository read access to platform accounts on PostgreSQL.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrValidation)
	}

	var u domain.User
	err := r.db.QueryRowContext(ctx, `
		SELECT
			user_id::text,
			name,
			COALESCE(email, '') as email,
			COALESCE(avatar_url, '') as avatar_url,
			is_artist,
			COALESCE(billing_account_id, '') as billing_account_id
		FROM users
		WHERE user_id = $1::uuid
	`, userID).Scan(&u.UserID, &u.Name, &u.Email, &u.AvatarURL, &u.IsArtist, &u.BillingAccountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w: %w", err, domain.ErrPersistence)
	}
	return &u, nil
}
