package service

import (
	"context"
	"errors"
	"fmt"

	"atelier-commission/internal/billing"
	"atelier-commission/internal/domain"
	"atelier-commission/internal/repository"

	"go.uber.org/zap"
)

// BillingAPI is the slice of the billing collaborator the orchestrator consumes.
type BillingAPI interface {
	CreateCustomer(ctx context.Context, account, name, email string) (*billing.Customer, error)
	CreateInvoiceDraft(ctx context.Context, account, customerID string, metadata map[string]string) (*billing.InvoiceDraft, error)
}

// CustomerProvisioner resolves the billing identity for a (user, artist) pair.
type CustomerProvisioner struct {
	customers repository.CustomersRepository
	users     repository.UsersRepository
	billing   BillingAPI
	logger    *zap.Logger
}

func NewCustomerProvisioner(
	customers repository.CustomersRepository,
	users repository.UsersRepository,
	billingAPI BillingAPI,
	logger *zap.Logger,
) *CustomerProvisioner {
	return &CustomerProvisioner{
		customers: customers,
		users:     users,
		billing:   billingAPI,
		logger:    logger,
	}
}

// LookupOrCreate returns the binding for the pair, creating the remote
// customer record and persisting the binding on first use.
//
// This is deliberately not fully idempotent under race: two concurrent
// first-time calls for the same pair may both miss the lookup and both create
// a remote customer. The unique key on (user_id, artist_id) lets exactly one
// insert win; the loser re-reads the winner's row, and the orphaned remote
// customer is tolerated (the billing provider allows duplicates).
func (p *CustomerProvisioner) LookupOrCreate(ctx context.Context, userID, artistID string) (*domain.CustomerBinding, error) {
	binding, err := p.customers.GetBinding(ctx, userID, artistID)
	if err == nil {
		return binding, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up customer binding: %w", err)
	}

	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}
	artist, err := p.users.GetUser(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artist: %w", err)
	}

	customer, err := p.billing.CreateCustomer(ctx, artist.BillingAccountID, user.Name, user.Email)
	if err != nil {
		return nil, err
	}

	err = p.customers.InsertBinding(ctx, &domain.CustomerBinding{
		UserID:           userID,
		ArtistID:         artistID,
		CustomerID:       customer.ID,
		PaymentAccountID: artist.BillingAccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist customer binding: %w", err)
	}

	p.logger.Info("Provisioned billing customer",
		zap.String("user_id", userID),
		zap.String("artist_id", artistID),
		zap.String("customer_id", customer.ID),
	)

	// Re-read so a lost race returns the winner's binding.
	return p.customers.GetBinding(ctx, userID, artistID)
}
