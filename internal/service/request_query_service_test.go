package service

import (
	"context"
	"testing"

	"atelier-commission/internal/cache"
	"atelier-commission/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRequest_ByOrderID(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(5, 10)
	submitted := e.submit(t, commissionID, userID)

	req, err := e.queries.GetRequest(context.Background(), submitted.OrderID)
	require.NoError(t, err)
	assert.Equal(t, submitted.RequestID, req.RequestID)

	_, err = e.queries.GetRequest(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetRequest_ServesFromCacheInsideTTL(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(5, 10)
	submitted := e.submit(t, commissionID, userID)

	_, err := e.queries.GetRequest(context.Background(), submitted.OrderID)
	require.NoError(t, err)

	// A stale entry planted under the key is served as-is until invalidation.
	key := cache.RequestByOrderKey(submitted.OrderID)
	_, ok := e.kv.data[key]
	require.True(t, ok)
	require.NoError(t, e.kv.Set(context.Background(), key, `{"request_id":"planted"}`, 0))

	req, err := e.queries.GetRequest(context.Background(), submitted.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "planted", req.RequestID)
}

func TestCheckUserRequested(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(5, 10)

	input := submitInput(commissionID, userID)
	requested, err := e.queries.CheckUserRequested(context.Background(), userID, input.FormID)
	require.NoError(t, err)
	assert.False(t, requested)

	_, err = e.admission.SubmitRequest(context.Background(), input)
	require.NoError(t, err)

	requested, err = e.queries.CheckUserRequested(context.Background(), userID, input.FormID)
	require.NoError(t, err)
	assert.True(t, requested)
}

func TestGetUserRequestList_NewestFirst(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, _, userID := e.seedPair(5, 10)

	first := e.submit(t, commissionID, userID)
	second := e.submit(t, commissionID, userID)

	list, err := e.queries.GetUserRequestList(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.RequestID, list[0].RequestID)
	assert.Equal(t, first.RequestID, list[1].RequestID)
}

func TestGetArtistCommissions_ReflectsCounters(t *testing.T) {
	e := newEnv(DecisionPolicy{})
	commissionID, artistID, userID := e.seedPair(5, 10)

	// warm the cache, then mutate
	_, err := e.queries.GetArtistCommissions(context.Background(), artistID)
	require.NoError(t, err)

	e.submit(t, commissionID, userID)

	list, err := e.queries.GetArtistCommissions(context.Background(), artistID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].NewRequests)
}

func TestQueries_RejectEmptyIdentifiers(t *testing.T) {
	e := newEnv(DecisionPolicy{})

	_, err := e.queries.GetRequest(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.queries.GetRequestList(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.queries.GetUserRequestList(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.queries.CheckUserRequested(context.Background(), "", "form")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.queries.GetArtistCommissions(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
