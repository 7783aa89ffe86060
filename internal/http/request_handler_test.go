package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"atelier-commission/internal/billing"
	"atelier-commission/internal/cache"
	"atelier-commission/internal/domain"
	"atelier-commission/internal/messaging"
	"atelier-commission/internal/repository"
	"atelier-commission/internal/service"
	"atelier-commission/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (m *mapKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapKV) ScanKeys(_ context.Context, _ string) ([]string, error) { return nil, nil }

type noopNotifier struct{}

func (noopNotifier) Trigger(string, string, any) {}

type stubBilling struct{ n int }

func (s *stubBilling) CreateCustomer(_ context.Context, _, name, email string) (*billing.Customer, error) {
	s.n++
	return &billing.Customer{ID: fmt.Sprintf("cus_%d", s.n), Name: name, Email: email}, nil
}

func (s *stubBilling) CreateInvoiceDraft(_ context.Context, _, customerID string, _ map[string]string) (*billing.InvoiceDraft, error) {
	s.n++
	return &billing.InvoiceDraft{ID: fmt.Sprintf("in_%d", s.n), Status: "draft"}, nil
}

type stubMessaging struct {
	mu       sync.Mutex
	channels map[string]*messaging.GroupChannel
}

func (s *stubMessaging) CreateUser(context.Context, string, string, string) error { return nil }

func (s *stubMessaging) GetGroupChannel(_ context.Context, key string) (*messaging.GroupChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[key]; ok {
		return ch, nil
	}
	return nil, fmt.Errorf("group channel %s: %w", key, domain.ErrNotFound)
}

func (s *stubMessaging) CreateGroupChannel(_ context.Context, params messaging.CreateChannelParams) (*messaging.GroupChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := &messaging.GroupChannel{ChannelURL: "channel_" + params.ChannelKey, Name: params.Name}
	s.channels[params.ChannelKey] = ch
	return ch, nil
}

type apiFixture struct {
	router       *Router
	commissions  *repository.MemoryCommissionsRepository
	users        *repository.MemoryUsersRepository
	commissionID string
	artistID     string
	userID       string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()

	requests := repository.NewMemoryRequestsRepository()
	commissions := repository.NewMemoryCommissionsRepository(requests)
	users := repository.NewMemoryUsersRepository()
	customers := repository.NewMemoryCustomersRepository()
	invoices := repository.NewMemoryInvoicesRepository()
	kanban := repository.NewMemoryKanbanRepository()

	readCache := cache.New(&mapKV{data: map[string]string{}}, time.Minute, logger)
	bill := &stubBilling{}
	chat := &stubMessaging{channels: map[string]*messaging.GroupChannel{}}

	provisioner := service.NewCustomerProvisioner(customers, users, bill, logger)
	admission := service.NewAdmissionService(commissions, readCache, noopNotifier{}, logger)
	decision := service.NewDecisionService(
		commissions, requests, users, invoices, kanban,
		provisioner, bill, chat,
		readCache, noopNotifier{}, service.DecisionPolicy{}, logger,
	)
	queries := service.NewRequestQueryService(commissions, requests, readCache, logger)

	router := NewRouter(logger)
	router.RegisterCommissionRoutes(NewRequestHandler(admission, decision, queries, logger))

	f := &apiFixture{router: router, commissions: commissions, users: users}
	f.artistID = users.SeedUser(domain.User{
		Name: "Iris", Email: "iris@example.com", IsArtist: true, BillingAccountID: "acct_artist",
	})
	f.userID = users.SeedUser(domain.User{Name: "Milo", Email: "milo@example.com"})
	f.commissionID = commissions.SeedCommission(domain.Commission{
		ArtistID:         f.artistID,
		Title:            "Bust portrait",
		Price:            12000,
		Currency:         "USD",
		Availability:     domain.AvailabilityOpen,
		MaxUntilWaitlist: 5,
		MaxUntilClosed:   10,
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder, result any) Result[json.RawMessage] {
	t.Helper()
	var envelope Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if result != nil && len(envelope.Result) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Result, result))
	}
	return envelope
}

func (f *apiFixture) submit(t *testing.T) domain.Request {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/commission/api/v1/requests", map[string]any{
		"commission_id": f.commissionID,
		"form_id":       "3b1f0a7e-0a2f-4f4c-9a5e-000000000001",
		"user_id":       f.userID,
		"content":       map[string]any{"answers": []string{"painterly"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var req domain.Request
	envelope := decodeResult(t, rec, &req)
	assert.Equal(t, ResultSuccess, envelope.Code)
	return req
}

func TestSubmitRequestEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	req := f.submit(t)

	assert.NotEmpty(t, req.RequestID)
	assert.NotEmpty(t, req.OrderID)
	assert.Equal(t, domain.RequestPending, req.Status)
}

func TestSubmitRequestEndpoint_InvalidBody(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/commission/api/v1/requests", bytes.NewBufferString("{oops")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	envelope := decodeResult(t, rec, nil)
	assert.Equal(t, ResultError, envelope.Code)
}

func TestSubmitRequestEndpoint_MissingFields(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/commission/api/v1/requests", map[string]any{
		"commission_id": f.commissionID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDecisionEndpoint_Accept(t *testing.T) {
	f := newAPIFixture(t)
	submitted := f.submit(t)

	rec := f.do(t, http.MethodPost,
		"/commission/api/v1/requests/"+submitted.RequestID+"/decision",
		map[string]any{"accepted": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var decided domain.Request
	decodeResult(t, rec, &decided)
	assert.Equal(t, domain.RequestAccepted, decided.Status)
	require.NotNil(t, decided.InvoiceID)
	require.NotNil(t, decided.KanbanID)
	require.NotNil(t, decided.ChatChannelURL)
}

func TestDecisionEndpoint_SecondDecisionConflicts(t *testing.T) {
	f := newAPIFixture(t)
	submitted := f.submit(t)

	rec := f.do(t, http.MethodPost,
		"/commission/api/v1/requests/"+submitted.RequestID+"/decision",
		map[string]any{"accepted": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost,
		"/commission/api/v1/requests/"+submitted.RequestID+"/decision",
		map[string]any{"accepted": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetRequestByOrderEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	submitted := f.submit(t)

	rec := f.do(t, http.MethodGet, "/commission/api/v1/requests/order/"+submitted.OrderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var req domain.Request
	decodeResult(t, rec, &req)
	assert.Equal(t, submitted.RequestID, req.RequestID)
}

func TestGetRequestByOrderEndpoint_Missing(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet,
		"/commission/api/v1/requests/order/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestListEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.submit(t)

	rec := f.do(t, http.MethodGet,
		"/commission/api/v1/requests?commission_id="+f.commissionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []domain.Request
	decodeResult(t, rec, &list)
	assert.Len(t, list, 1)
}

func TestUserRequestListEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.submit(t)

	rec := f.do(t, http.MethodGet, "/commission/api/v1/users/"+f.userID+"/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []domain.Request
	decodeResult(t, rec, &list)
	assert.Len(t, list, 1)
}

func TestCheckUserRequestedEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	submitted := f.submit(t)

	rec := f.do(t, http.MethodGet,
		"/commission/api/v1/requests/check?user_id="+f.userID+"&form_id="+submitted.FormID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]bool
	decodeResult(t, rec, &out)
	assert.True(t, out["requested"])
}

func TestArtistCommissionsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.submit(t)

	rec := f.do(t, http.MethodGet, "/commission/api/v1/artists/"+f.artistID+"/commissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []domain.Commission
	decodeResult(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].NewRequests)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/commission/api/v1/requests", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = f.do(t, http.MethodGet, "/commission/api/v1/requests/some-id/decision", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
