package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueuedAction(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	qa := NewQueuedAction(TypeSaveFavorite, nil, now)

	assert.NotEmpty(t, qa.ID)
	assert.Equal(t, TypeSaveFavorite, qa.Type)
	assert.Equal(t, 0, qa.AttemptCount)
	assert.Equal(t, now, qa.EnqueuedAt)
	assert.JSONEq(t, `{}`, string(qa.Payload))
}

func TestNewQueuedAction_InvalidPayloadStaysEncodable(t *testing.T) {
	broken := NewQueuedAction(TypeSaveFavorite, json.RawMessage(`{"productId":`), time.Now())
	assert.True(t, json.Valid(broken.Payload))
	assert.JSONEq(t, `"{\"productId\":"`, string(broken.Payload))

	data, err := Encode([]QueuedAction{broken, NewQueuedAction(TypeSaveFavorite, json.RawMessage(`{"productId":"p-1"}`), time.Now())})
	require.NoError(t, err)
	decoded, err := DecodeAll(data)
	require.NoError(t, err)
	assert.Len(t, decoded, 2)

	_, err = Decode[SaveFavorite](broken)
	assert.Error(t, err)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestFromAction_PayloadShape(t *testing.T) {
	qa, err := FromAction(ContactDealer{DealerID: "d-1", Name: "Amina", Message: "Is the seed in stock?"}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, TypeContactDealer, qa.Type)
	assert.JSONEq(t, `{"dealerId":"d-1","name":"Amina","message":"Is the seed in stock?"}`, string(qa.Payload))
}

func TestEncodeDecodeAll_PreservesOrderAndAttempts(t *testing.T) {
	now := time.Now().UTC()
	first := NewQueuedAction(TypeSaveFavorite, json.RawMessage(`{"productId":"p-1"}`), now)
	second := NewQueuedAction(TypeSubmitReview, json.RawMessage(`{"productId":"p-2","rating":4}`), now.Add(time.Second))
	second.AttemptCount = 2

	data, err := Encode([]QueuedAction{first, second})
	require.NoError(t, err)

	decoded, err := DecodeAll(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	assert.Equal(t, first.ID, decoded[0].ID)
	assert.Equal(t, second.ID, decoded[1].ID)
	assert.Equal(t, 0, decoded[0].AttemptCount)
	assert.Equal(t, 2, decoded[1].AttemptCount)
	assert.True(t, second.EnqueuedAt.Equal(decoded[1].EnqueuedAt))
	assert.JSONEq(t, `{"productId":"p-2","rating":4}`, string(decoded[1].Payload))
}

func TestEncode_EmptyQueueIsArray(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	decoded, err := DecodeAll(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}
