package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID returns a time-ordered identifier (UUIDv7: millisecond timestamp plus random bits)
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does
		return uuid.NewString()
	}
	return id.String()
}

// NewQueuedAction builds a QueuedAction with attemptCount 0 from a raw payload.
// An empty payload becomes {}; one that is not valid JSON is kept as a JSON
// string so the queue stays encodable.
func NewQueuedAction(actionType string, payload json.RawMessage, now time.Time) QueuedAction {
	switch {
	case len(payload) == 0:
		payload = json.RawMessage("{}")
	case !json.Valid(payload):
		quoted, _ := json.Marshal(string(payload))
		payload = quoted
	}
	return QueuedAction{
		ID:         NewID(),
		Type:       actionType,
		Payload:    payload,
		EnqueuedAt: now,
	}
}

// FromAction encodes a typed action into a QueuedAction
func FromAction(a Action, now time.Time) (QueuedAction, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return QueuedAction{}, fmt.Errorf("encode %s payload: %w", a.ActionType(), err)
	}
	return NewQueuedAction(a.ActionType(), payload, now), nil
}

// Decode unmarshals the payload into the action variant A
func Decode[A Action](qa QueuedAction) (A, error) {
	var a A
	if err := json.Unmarshal(qa.Payload, &a); err != nil {
		return a, fmt.Errorf("decode %s payload: %w", qa.Type, err)
	}
	return a, nil
}

// Encode serializes an ordered queue for the storage slot
func Encode(actions []QueuedAction) ([]byte, error) {
	if actions == nil {
		actions = []QueuedAction{}
	}
	return json.Marshal(actions)
}

// DecodeAll parses a stored slot. An empty slot yields an empty queue.
func DecodeAll(data []byte) ([]QueuedAction, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var actions []QueuedAction
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}
