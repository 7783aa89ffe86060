package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"atelier-commission/internal/cache"
	"atelier-commission/internal/domain"
	"atelier-commission/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier fires platform notification events. Implementations never block the
// caller and never surface delivery errors.
type Notifier interface {
	Trigger(eventName, subscriberID string, payload any)
}

// Notification event names published by the orchestrator.
const (
	EventRequestReceived = "commission.request.received"
	EventRequestDecided  = "commission.request.decided"
)

// SubmitRequestInput client submission against a commission.
type SubmitRequestInput struct {
	CommissionID string          `json:"commission_id"`
	FormID       string          `json:"form_id"`
	UserID       string          `json:"user_id"`
	Content      json.RawMessage `json:"content"`
}

// AdmissionService decides whether a new request is admitted as pending or
// waitlisted, and flips commission availability when capacity thresholds are
// crossed. The counter bump and the availability flip happen in one atomic
// store operation, so concurrent submissions cannot lose updates.
type AdmissionService struct {
	commissions repository.CommissionsRepository
	cache       *cache.Cache
	notifier    Notifier
	logger      *zap.Logger
}

func NewAdmissionService(
	commissions repository.CommissionsRepository,
	cache *cache.Cache,
	notifier Notifier,
	logger *zap.Logger,
) *AdmissionService {
	return &AdmissionService{
		commissions: commissions,
		cache:       cache,
		notifier:    notifier,
		logger:      logger,
	}
}

// SubmitRequest admits a request onto the commission's capacity and persists
// it with the admitted status; bump and insert are one store transaction. The
// artist notification is best-effort; cache invalidation is synchronous.
func (s *AdmissionService) SubmitRequest(ctx context.Context, input SubmitRequestInput) (*domain.Request, error) {
	if input.CommissionID == "" || input.FormID == "" || input.UserID == "" {
		return nil, fmt.Errorf("commission_id, form_id and user_id are required: %w", domain.ErrValidation)
	}
	if len(input.Content) == 0 || !json.Valid(input.Content) {
		return nil, fmt.Errorf("content must be a JSON document: %w", domain.ErrValidation)
	}

	commission, err := s.commissions.GetCommission(ctx, input.CommissionID)
	if err != nil {
		return nil, err
	}
	if commission.Availability == domain.AvailabilityClosed {
		return nil, fmt.Errorf("commission %s: %w", commission.CommissionID, domain.ErrAdmissionClosed)
	}

	req := &domain.Request{
		RequestID:    uuid.NewString(),
		CommissionID: commission.CommissionID,
		UserID:       input.UserID,
		FormID:       input.FormID,
		OrderID:      uuid.NewString(),
		Content:      input.Content,
		CreatedAt:    time.Now(),
	}
	outcome, err := s.commissions.AdmitRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	s.notifier.Trigger(EventRequestReceived, commission.ArtistID, map[string]any{
		"request_id":    req.RequestID,
		"order_id":      req.OrderID,
		"commission_id": commission.CommissionID,
		"status":        string(req.Status),
	})

	keys := cache.RequestWriteKeys(commission.CommissionID, commission.ArtistID, input.UserID, req.OrderID, input.FormID)
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return nil, err
	}

	s.logger.Info("Admitted commission request",
		zap.String("request_id", req.RequestID),
		zap.String("commission_id", commission.CommissionID),
		zap.String("status", string(req.Status)),
		zap.Int("new_requests", outcome.NewRequests),
		zap.String("availability", string(outcome.Availability)),
	)
	return req, nil
}
