package service

import (
	"context"
	"errors"
	"fmt"

	"atelier-commission/internal/cache"
	"atelier-commission/internal/domain"
	"atelier-commission/internal/messaging"
	"atelier-commission/internal/repository"

	"go.uber.org/zap"
)

// MessagingAPI is the slice of the chat collaborator the orchestrator consumes.
type MessagingAPI interface {
	CreateUser(ctx context.Context, userID, nickname, avatarURL string) error
	GetGroupChannel(ctx context.Context, channelKey string) (*messaging.GroupChannel, error)
	CreateGroupChannel(ctx context.Context, params messaging.CreateChannelParams) (*messaging.GroupChannel, error)
}

// Provisioner resolves billing identities for (user, artist) pairs.
type Provisioner interface {
	LookupOrCreate(ctx context.Context, userID, artistID string) (*domain.CustomerBinding, error)
}

// DecisionPolicy tunable behavior of the decision saga.
type DecisionPolicy struct {
	// PromoteOnReject moves the oldest waitlisted request into the slot a
	// rejection frees. Off by default.
	PromoteOnReject bool
}

// DecisionService runs the accept/reject saga. There is no transaction across
// the store, the billing provider and the chat provider; instead every
// sub-resource is idempotent by a natural key (customer by user+artist,
// invoice by request, channel by order id, board by request) and the final
// status write is the single commit point. An interrupted accept re-enters the
// saga, rediscovers already-created sub-resources through those keys and
// converges instead of duplicating.
type DecisionService struct {
	commissions repository.CommissionsRepository
	requests    repository.RequestsRepository
	users       repository.UsersRepository
	invoices    repository.InvoicesRepository
	kanban      repository.KanbanRepository
	provisioner Provisioner
	billing     BillingAPI
	messaging   MessagingAPI
	cache       *cache.Cache
	notifier    Notifier
	policy      DecisionPolicy
	logger      *zap.Logger
}

func NewDecisionService(
	commissions repository.CommissionsRepository,
	requests repository.RequestsRepository,
	users repository.UsersRepository,
	invoices repository.InvoicesRepository,
	kanban repository.KanbanRepository,
	provisioner Provisioner,
	billingAPI BillingAPI,
	messagingAPI MessagingAPI,
	cache *cache.Cache,
	notifier Notifier,
	policy DecisionPolicy,
	logger *zap.Logger,
) *DecisionService {
	return &DecisionService{
		commissions: commissions,
		requests:    requests,
		users:       users,
		invoices:    invoices,
		kanban:      kanban,
		provisioner: provisioner,
		billing:     billingAPI,
		messaging:   messagingAPI,
		cache:       cache,
		notifier:    notifier,
		policy:      policy,
		logger:      logger,
	}
}

// DetermineRequest accepts or rejects a pending/waitlisted request.
// Re-invoking against an already decided request returns domain.ErrConflict
// without re-running any step.
func (s *DecisionService) DetermineRequest(ctx context.Context, requestID string, accepted bool) (*domain.Request, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("request %s is already %s: %w", req.RequestID, req.Status, domain.ErrConflict)
	}

	commission, err := s.commissions.GetCommission(ctx, req.CommissionID)
	if err != nil {
		return nil, err
	}
	requester, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	artist, err := s.users.GetUser(ctx, commission.ArtistID)
	if err != nil {
		return nil, err
	}

	// Critical path: billing identity and counter settlement. Failure here
	// aborts with the request still non-terminal, safe to retry.
	binding, err := s.provisioner.LookupOrCreate(ctx, req.UserID, commission.ArtistID)
	if err != nil {
		return nil, err
	}
	if err := s.commissions.SettleDecision(ctx, commission.CommissionID, req.RequestID, accepted); err != nil {
		return nil, err
	}

	s.notifier.Trigger(EventRequestDecided, req.UserID, map[string]any{
		"request_id":    req.RequestID,
		"order_id":      req.OrderID,
		"commission_id": commission.CommissionID,
		"accepted":      accepted,
	})

	if !accepted {
		return s.reject(ctx, req, commission)
	}
	return s.accept(ctx, req, commission, requester, artist, binding)
}

func (s *DecisionService) reject(ctx context.Context, req *domain.Request, commission *domain.Commission) (*domain.Request, error) {
	if err := s.requests.MarkRejected(ctx, req.RequestID); err != nil {
		return nil, err
	}

	keys := cache.RequestWriteKeys(commission.CommissionID, commission.ArtistID, req.UserID, req.OrderID, req.FormID)

	if s.policy.PromoteOnReject {
		promoted, err := s.requests.PromoteOldestWaitlisted(ctx, commission.CommissionID)
		switch {
		case err == nil:
			keys = append(keys, cache.RequestWriteKeys(
				commission.CommissionID, commission.ArtistID,
				promoted.UserID, promoted.OrderID, promoted.FormID)...)
			s.logger.Info("Promoted waitlisted request",
				zap.String("request_id", promoted.RequestID),
				zap.String("commission_id", commission.CommissionID),
			)
		case errors.Is(err, domain.ErrNotFound):
			// empty waitlist, nothing to promote
		default:
			return nil, err
		}
	}

	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return nil, err
	}

	s.logger.Info("Rejected commission request",
		zap.String("request_id", req.RequestID),
		zap.String("commission_id", commission.CommissionID),
	)
	return s.requests.GetRequest(ctx, req.RequestID)
}

func (s *DecisionService) accept(
	ctx context.Context,
	req *domain.Request,
	commission *domain.Commission,
	requester *domain.User,
	artist *domain.User,
	binding *domain.CustomerBinding,
) (*domain.Request, error) {
	invoice, err := s.ensureInvoice(ctx, req, commission, binding)
	if err != nil {
		return nil, err
	}

	if err := s.messaging.CreateUser(ctx, req.UserID, requester.Name, requester.AvatarURL); err != nil {
		return nil, err
	}

	channel, err := s.ensureChannel(ctx, req, commission, requester, artist)
	if err != nil {
		return nil, err
	}

	board, err := s.ensureBoard(ctx, req)
	if err != nil {
		return nil, err
	}

	// Commit point: terminal status and all sub-resource references in one write.
	if err := s.requests.MarkAccepted(ctx, req.RequestID, invoice.InvoiceID, board.KanbanID, channel.ChannelURL); err != nil {
		return nil, err
	}

	keys := cache.RequestWriteKeys(commission.CommissionID, commission.ArtistID, req.UserID, req.OrderID, req.FormID)
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return nil, err
	}

	s.logger.Info("Accepted commission request",
		zap.String("request_id", req.RequestID),
		zap.String("commission_id", commission.CommissionID),
		zap.String("invoice_id", invoice.InvoiceID),
		zap.String("kanban_id", board.KanbanID),
		zap.String("channel_url", channel.ChannelURL),
	)
	return s.requests.GetRequest(ctx, req.RequestID)
}

// ensureInvoice reuses the draft from a prior attempt or creates one. The
// local row keyed by request_id is the idempotency record; only when it is
// absent does the saga draft a new invoice at the billing provider. A crash
// between the remote draft and the local insert orphans the draft at the
// provider: the retry drafts again and the orphan is tolerated, since drafts
// are never sent until the invoice row exists. Same relaxation as
// CustomerProvisioner.LookupOrCreate.
func (s *DecisionService) ensureInvoice(
	ctx context.Context,
	req *domain.Request,
	commission *domain.Commission,
	binding *domain.CustomerBinding,
) (*domain.Invoice, error) {
	invoice, err := s.invoices.GetInvoiceByRequest(ctx, req.RequestID)
	if err == nil {
		return invoice, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	draft, err := s.billing.CreateInvoiceDraft(ctx, binding.PaymentAccountID, binding.CustomerID, map[string]string{
		"request_id":    req.RequestID,
		"order_id":      req.OrderID,
		"commission_id": commission.CommissionID,
	})
	if err != nil {
		return nil, err
	}

	invoice = &domain.Invoice{
		RequestID:  req.RequestID,
		BillingID:  draft.ID,
		CustomerID: binding.CustomerID,
		Status:     domain.InvoiceCreating,
		Items: []domain.InvoiceItem{
			{Name: commission.Title, Price: commission.Price, Quantity: 1},
		},
	}
	invoiceID, err := s.invoices.CreateDraft(ctx, invoice)
	if err != nil {
		return nil, err
	}
	invoice.InvoiceID = invoiceID
	return invoice, nil
}

// ensureChannel reuses the channel keyed by the request's order id or creates
// it with the artist as sole operator.
func (s *DecisionService) ensureChannel(
	ctx context.Context,
	req *domain.Request,
	commission *domain.Commission,
	requester *domain.User,
	artist *domain.User,
) (*messaging.GroupChannel, error) {
	channel, err := s.messaging.GetGroupChannel(ctx, req.OrderID)
	if err == nil {
		return channel, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	return s.messaging.CreateGroupChannel(ctx, messaging.CreateChannelParams{
		UserIDs:     []string{req.UserID, artist.UserID},
		Name:        fmt.Sprintf("%s - %s", commission.Title, requester.Name),
		ChannelKey:  req.OrderID,
		OperatorIDs: []string{artist.UserID},
		IsDistinct:  false,
		Metadata:    map[string]string{"request_id": req.RequestID},
	})
}

// ensureBoard reuses the board from a prior attempt or creates it with the
// fixed three containers.
func (s *DecisionService) ensureBoard(ctx context.Context, req *domain.Request) (*domain.KanbanBoard, error) {
	board, err := s.kanban.GetBoardByRequest(ctx, req.RequestID)
	if err == nil {
		return board, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.kanban.CreateBoard(ctx, req.RequestID, domain.DefaultKanbanContainers)
}
