package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_TypedHandler(t *testing.T) {
	r := NewRegistry()

	var got SetPriceAlert
	var gotID string
	Register(r, func(ctx context.Context, id string, a SetPriceAlert) error {
		gotID = id
		got = a
		return nil
	})

	qa, err := FromAction(SetPriceAlert{Commodity: "Maize", Threshold: 250}, time.Now())
	require.NoError(t, err)

	handler, err := r.GetHandler(TypeSetPriceAlert)
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), qa))

	assert.Equal(t, qa.ID, gotID)
	assert.Equal(t, "Maize", got.Commodity)
	assert.Equal(t, 250.0, got.Threshold)
}

func TestRegistry_MissingHandler(t *testing.T) {
	r := NewRegistry()

	_, err := r.GetHandler("launch-rocket")
	assert.True(t, errors.Is(err, ErrNoHandler))
}

func TestRegistry_UndecodablePayloadIsPermanent(t *testing.T) {
	r := NewRegistry()
	Register(r, func(ctx context.Context, id string, a SubmitReview) error {
		t.Fatal("handler must not run")
		return nil
	})

	qa := NewQueuedAction(TypeSubmitReview, json.RawMessage(`{"rating":"five"}`), time.Now())
	handler, err := r.GetHandler(TypeSubmitReview)
	require.NoError(t, err)

	err = handler(context.Background(), qa)
	assert.True(t, errors.Is(err, ErrPermanent))
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry()
	Register(r, func(ctx context.Context, id string, a SaveFavorite) error { return nil })
	Register(r, func(ctx context.Context, id string, a ContactDealer) error { return nil })

	assert.Equal(t, []string{TypeContactDealer, TypeSaveFavorite}, r.Types())
}
