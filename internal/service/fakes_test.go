package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"atelier-commission/internal/billing"
	"atelier-commission/internal/cache"
	"atelier-commission/internal/domain"
	"atelier-commission/internal/messaging"
	"atelier-commission/internal/repository"
	"atelier-commission/internal/store"

	"go.uber.org/zap"
)

// memKV in-memory store.KV backing the cache in tests.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) ScanKeys(_ context.Context, _ string) ([]string, error) { return nil, nil }

// recordedEvent a single Trigger call.
type recordedEvent struct {
	Event        string
	SubscriberID string
}

// fakeNotifier records triggered events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeNotifier) Trigger(eventName, subscriberID string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Event: eventName, SubscriberID: subscriberID})
}

func (f *fakeNotifier) byName(name string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []recordedEvent{}
	for _, e := range f.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// fakeBilling counts provider calls and supports failure injection.
type fakeBilling struct {
	mu           sync.Mutex
	customers    int
	drafts       int
	customerErr  error
	draftErr     error
	nextDraftID  int
	nextCustomer int
}

func (f *fakeBilling) CreateCustomer(_ context.Context, account, name, email string) (*billing.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	f.customers++
	f.nextCustomer++
	return &billing.Customer{ID: fmt.Sprintf("cus_%d", f.nextCustomer), Name: name, Email: email}, nil
}

func (f *fakeBilling) CreateInvoiceDraft(_ context.Context, account, customerID string, _ map[string]string) (*billing.InvoiceDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draftErr != nil {
		return nil, f.draftErr
	}
	f.drafts++
	f.nextDraftID++
	return &billing.InvoiceDraft{ID: fmt.Sprintf("in_%d", f.nextDraftID), Status: "draft"}, nil
}

func (f *fakeBilling) customerCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customers
}

func (f *fakeBilling) draftCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts
}

// fakeMessaging stores channels by their key, mirroring the provider's
// lookup-by-key idempotency.
type fakeMessaging struct {
	mu          sync.Mutex
	users       map[string]bool
	channels    map[string]*messaging.GroupChannel
	createCalls int
	userErr     error
	channelErr  error
}

func newFakeMessaging() *fakeMessaging {
	return &fakeMessaging{
		users:    map[string]bool{},
		channels: map[string]*messaging.GroupChannel{},
	}
}

func (f *fakeMessaging) CreateUser(_ context.Context, userID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userErr != nil {
		return f.userErr
	}
	f.users[userID] = true
	return nil
}

func (f *fakeMessaging) GetGroupChannel(_ context.Context, channelKey string) (*messaging.GroupChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelKey]
	if !ok {
		return nil, fmt.Errorf("group channel %s: %w", channelKey, domain.ErrNotFound)
	}
	copied := *ch
	return &copied, nil
}

func (f *fakeMessaging) CreateGroupChannel(_ context.Context, params messaging.CreateChannelParams) (*messaging.GroupChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	f.createCalls++
	ch := &messaging.GroupChannel{
		ChannelURL: "sendbird_group_channel_" + params.ChannelKey,
		Name:       params.Name,
	}
	f.channels[params.ChannelKey] = ch
	copied := *ch
	return &copied, nil
}

func (f *fakeMessaging) channelCreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

var errProviderDown = errors.New("provider unavailable")

// env wires the full service stack on memory repos for tests.
type env struct {
	commissions *repository.MemoryCommissionsRepository
	requests    *repository.MemoryRequestsRepository
	users       *repository.MemoryUsersRepository
	customers   *repository.MemoryCustomersRepository
	invoices    *repository.MemoryInvoicesRepository
	kanban      *repository.MemoryKanbanRepository
	billing     *fakeBilling
	messaging   *fakeMessaging
	notifier    *fakeNotifier
	cache       *cache.Cache
	kv          *memKV

	admission *AdmissionService
	decision  *DecisionService
	queries   *RequestQueryService
}

func newEnv(policy DecisionPolicy) *env {
	logger := zap.NewNop()

	requests := repository.NewMemoryRequestsRepository()
	e := &env{
		commissions: repository.NewMemoryCommissionsRepository(requests),
		requests:    requests,
		users:       repository.NewMemoryUsersRepository(),
		customers:   repository.NewMemoryCustomersRepository(),
		invoices:    repository.NewMemoryInvoicesRepository(),
		kanban:      repository.NewMemoryKanbanRepository(),
		billing:     &fakeBilling{},
		messaging:   newFakeMessaging(),
		notifier:    &fakeNotifier{},
		kv:          newMemKV(),
	}
	e.cache = cache.New(e.kv, time.Minute, logger)

	provisioner := NewCustomerProvisioner(e.customers, e.users, e.billing, logger)
	e.admission = NewAdmissionService(e.commissions, e.cache, e.notifier, logger)
	e.decision = NewDecisionService(
		e.commissions, e.requests, e.users, e.invoices, e.kanban,
		provisioner, e.billing, e.messaging,
		e.cache, e.notifier, policy, logger,
	)
	e.queries = NewRequestQueryService(e.commissions, e.requests, e.cache, logger)
	return e
}

// seedPair seeds an artist, a requester and an open commission; returns
// (commissionID, artistID, userID).
func (e *env) seedPair(maxUntilWaitlist, maxUntilClosed int) (string, string, string) {
	artistID := e.users.SeedUser(domain.User{
		Name:             "Iris",
		Email:            "iris@example.com",
		IsArtist:         true,
		BillingAccountID: "acct_artist",
	})
	userID := e.users.SeedUser(domain.User{
		Name:  "Milo",
		Email: "milo@example.com",
	})
	commissionID := e.commissions.SeedCommission(domain.Commission{
		ArtistID:         artistID,
		Title:            "Bust portrait",
		Slug:             "bust-portrait",
		Price:            12000,
		Currency:         "USD",
		Availability:     domain.AvailabilityOpen,
		MaxUntilWaitlist: maxUntilWaitlist,
		MaxUntilClosed:   maxUntilClosed,
	})
	return commissionID, artistID, userID
}
