package remote

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	requests []Request
	status   int
	err      error
}

func (s *stubSender) Send(ctx context.Context, req Request) (*Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Status: s.status}, nil
}

func deliver(t *testing.T, d *Deliverer, a queue.Action) error {
	t.Helper()
	r := queue.NewRegistry()
	d.RegisterHandlers(r)

	qa, err := queue.FromAction(a, time.Now())
	require.NoError(t, err)
	handler, err := r.GetHandler(qa.Type)
	require.NoError(t, err)
	return handler(context.Background(), qa)
}

func TestDeliverer_Endpoints(t *testing.T) {
	cases := []struct {
		action queue.Action
		path   string
	}{
		{queue.SetPriceAlert{Commodity: "Maize", Threshold: 250}, "/prices/alerts"},
		{queue.ContactDealer{DealerID: "d 7", Message: "hi"}, "/dealers/d%207/contact"},
		{queue.SubmitReview{ProductID: "p-1", Rating: 5}, "/products/p-1/reviews"},
		{queue.SaveFavorite{ProductID: "p-2"}, "/products/p-2/favorite"},
	}
	for _, tc := range cases {
		sender := &stubSender{status: http.StatusCreated}
		require.NoError(t, deliver(t, NewDeliverer(sender, false), tc.action))
		require.Len(t, sender.requests, 1)
		assert.Equal(t, http.MethodPost, sender.requests[0].Method)
		assert.Equal(t, tc.path, sender.requests[0].Path)
		assert.Equal(t, tc.action.ActionType(), sender.requests[0].ActionType)
	}
}

func TestDeliverer_FailureClassification(t *testing.T) {
	action := queue.SaveFavorite{ProductID: "p-2"}

	err := deliver(t, NewDeliverer(&stubSender{status: http.StatusUnprocessableEntity}, false), action)
	require.Error(t, err)
	assert.False(t, errors.Is(err, queue.ErrPermanent))

	err = deliver(t, NewDeliverer(&stubSender{status: http.StatusUnprocessableEntity}, true), action)
	assert.True(t, errors.Is(err, queue.ErrPermanent))

	err = deliver(t, NewDeliverer(&stubSender{status: http.StatusBadGateway}, true), action)
	require.Error(t, err)
	assert.False(t, errors.Is(err, queue.ErrPermanent))

	err = deliver(t, NewDeliverer(&stubSender{err: errors.New("connection refused")}, true), action)
	require.Error(t, err)
	assert.False(t, errors.Is(err, queue.ErrPermanent))
}

func TestDeliverer_MissingIdentifier(t *testing.T) {
	sender := &stubSender{status: http.StatusOK}
	err := deliver(t, NewDeliverer(sender, false), queue.SubmitReview{Rating: 3})

	assert.True(t, errors.Is(err, queue.ErrPermanent))
	assert.Empty(t, sender.requests)
}
