package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"atelier-commission/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitInput(commissionID, userID string) SubmitRequestInput {
	return SubmitRequestInput{
		CommissionID: commissionID,
		FormID:       uuid.NewString(),
		UserID:       userID,
		Content:      json.RawMessage(`{"answers":[{"q":"style","a":"painterly"}]}`),
	}
}

func TestSubmitRequest_AdmitsPending(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, artistID, userID := e.seedPair(5, 10)

	req, err := e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
	require.NoError(t, err)

	assert.Equal(t, domain.RequestPending, req.Status)
	assert.Equal(t, domain.SagaNone, req.SagaState)
	assert.NotEmpty(t, req.RequestID)
	assert.NotEmpty(t, req.OrderID)

	c, err := e.commissions.GetCommission(context.Background(), commissionID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.NewRequests)
	assert.Equal(t, domain.AvailabilityOpen, c.Availability)

	received := e.notifier.byName(EventRequestReceived)
	require.Len(t, received, 1)
	assert.Equal(t, artistID, received[0].SubscriberID)
}

func TestSubmitRequest_SixthRequestIsWaitlisted(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(5, 10)

	for i := 0; i < 5; i++ {
		req, err := e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
		require.NoError(t, err)
		assert.Equal(t, domain.RequestPending, req.Status)
	}

	req, err := e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestWaitlist, req.Status)

	c, err := e.commissions.GetCommission(context.Background(), commissionID)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityWaitlist, c.Availability)
}

func TestSubmitRequest_ClosesAtCapacityAndRejectsFurther(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(2, 4)

	for i := 0; i < 5; i++ {
		_, err := e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
		require.NoError(t, err)
	}

	c, err := e.commissions.GetCommission(context.Background(), commissionID)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityClosed, c.Availability)

	_, err = e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
	assert.ErrorIs(t, err, domain.ErrAdmissionClosed)

	c, err = e.commissions.GetCommission(context.Background(), commissionID)
	require.NoError(t, err)
	assert.Equal(t, 5, c.NewRequests)
}

func TestSubmitRequest_ConcurrentSubmissionsLoseNoCounts(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(10, 100)

	const n = 20
	results := make([]*domain.Request, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
		}(i)
	}
	wg.Wait()

	pending, waitlisted := 0, 0
	for i, req := range results {
		require.NoError(t, errs[i])
		switch req.Status {
		case domain.RequestPending:
			pending++
		case domain.RequestWaitlist:
			waitlisted++
		default:
			t.Fatalf("unexpected status %s", req.Status)
		}
	}
	assert.Equal(t, 10, pending)
	assert.Equal(t, 10, waitlisted)

	c, err := e.commissions.GetCommission(context.Background(), commissionID)
	require.NoError(t, err)
	assert.Equal(t, n, c.NewRequests)
}

func TestSubmitRequest_ValidatesInput(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(5, 10)

	cases := []struct {
		name  string
		input SubmitRequestInput
	}{
		{"missing commission", SubmitRequestInput{FormID: "f", UserID: userID, Content: json.RawMessage(`{}`)}},
		{"missing form", SubmitRequestInput{CommissionID: commissionID, UserID: userID, Content: json.RawMessage(`{}`)}},
		{"missing user", SubmitRequestInput{CommissionID: commissionID, FormID: "f", Content: json.RawMessage(`{}`)}},
		{"empty content", SubmitRequestInput{CommissionID: commissionID, FormID: "f", UserID: userID}},
		{"malformed content", SubmitRequestInput{CommissionID: commissionID, FormID: "f", UserID: userID, Content: json.RawMessage(`{oops`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.admission.SubmitRequest(context.Background(), tc.input)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestSubmitRequest_UnknownCommission(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	_, _, userID := e.seedPair(5, 10)

	_, err := e.admission.SubmitRequest(context.Background(), submitInput(uuid.NewString(), userID))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitRequest_InvalidatesCachedLists(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(5, 10)

	// warm the commission list cache
	list, err := e.queries.GetRequestList(context.Background(), commissionID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
	require.NoError(t, err)

	list, err = e.queries.GetRequestList(context.Background(), commissionID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, userID, list[0].UserID)
}

func TestSubmitRequest_OrderIDsAreUnique(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(50, 100)

	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		req, err := e.admission.SubmitRequest(context.Background(), submitInput(commissionID, userID))
		require.NoError(t, err)
		require.False(t, seen[req.OrderID], fmt.Sprintf("duplicate order id %s", req.OrderID))
		seen[req.OrderID] = true
	}
}
