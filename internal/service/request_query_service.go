package service

import (
	"context"
	"fmt"

	"atelier-commission/internal/cache"
	"atelier-commission/internal/domain"
	"atelier-commission/internal/repository"

	"go.uber.org/zap"
)

// RequestQueryService read-model queries over the request store, served
// through the cache. Every key used here is part of the invalidation set the
// mutating operations clear, so reads inside the TTL window never see a
// pre-decision snapshot.
type RequestQueryService struct {
	commissions repository.CommissionsRepository
	requests    repository.RequestsRepository
	cache       *cache.Cache
	logger      *zap.Logger
}

func NewRequestQueryService(
	commissions repository.CommissionsRepository,
	requests repository.RequestsRepository,
	cache *cache.Cache,
	logger *zap.Logger,
) *RequestQueryService {
	return &RequestQueryService{
		commissions: commissions,
		requests:    requests,
		cache:       cache,
		logger:      logger,
	}
}

// GetRequest resolves a request by its external order id.
func (s *RequestQueryService) GetRequest(ctx context.Context, orderID string) (*domain.Request, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order_id is required: %w", domain.ErrValidation)
	}

	var req domain.Request
	err := s.cache.GetJSON(ctx, cache.RequestByOrderKey(orderID), &req, func(ctx context.Context) (any, error) {
		return s.requests.GetRequestByOrderID(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestList lists a commission's requests for the artist dashboard.
func (s *RequestQueryService) GetRequestList(ctx context.Context, commissionID string) ([]*domain.Request, error) {
	if commissionID == "" {
		return nil, fmt.Errorf("commission_id is required: %w", domain.ErrValidation)
	}

	var list []*domain.Request
	err := s.cache.GetJSON(ctx, cache.CommissionRequestsKey(commissionID), &list, func(ctx context.Context) (any, error) {
		return s.requests.ListRequestsByCommission(ctx, commissionID)
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// GetUserRequestList lists a user's requests across commissions.
func (s *RequestQueryService) GetUserRequestList(ctx context.Context, userID string) ([]*domain.Request, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrValidation)
	}

	var list []*domain.Request
	err := s.cache.GetJSON(ctx, cache.UserRequestsKey(userID), &list, func(ctx context.Context) (any, error) {
		return s.requests.ListRequestsByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CheckUserRequested reports whether the user already submitted against the form.
func (s *RequestQueryService) CheckUserRequested(ctx context.Context, userID, formID string) (bool, error) {
	if userID == "" || formID == "" {
		return false, fmt.Errorf("user_id and form_id are required: %w", domain.ErrValidation)
	}

	var requested bool
	err := s.cache.GetJSON(ctx, cache.UserRequestedKey(userID, formID), &requested, func(ctx context.Context) (any, error) {
		return s.requests.HasUserRequested(ctx, userID, formID)
	})
	if err != nil {
		return false, err
	}
	return requested, nil
}

// GetArtistCommissions lists an artist's commissions with live counters.
func (s *RequestQueryService) GetArtistCommissions(ctx context.Context, artistID string) ([]*domain.Commission, error) {
	if artistID == "" {
		return nil, fmt.Errorf("artist_id is required: %w", domain.ErrValidation)
	}

	var list []*domain.Commission
	err := s.cache.GetJSON(ctx, cache.ArtistCommissionsKey(artistID), &list, func(ctx context.Context) (any, error) {
		return s.commissions.ListCommissionsByArtist(ctx, artistID)
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
