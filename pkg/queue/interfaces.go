package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoHandler is returned when no handler is registered for an action type
	ErrNoHandler = errors.New("no handler registered")
	// ErrPermanent marks a failure that retrying cannot fix
	ErrPermanent = errors.New("permanent failure")
)

// Permanent wraps err so that errors.Is(err, ErrPermanent) holds
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Action is a typed unit of deferred work. Each variant carries its own payload.
type Action interface {
	ActionType() string
}

// QueuedAction is an action waiting for delivery
type QueuedAction struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	EnqueuedAt   time.Time       `json:"enqueuedAt"`
	AttemptCount int             `json:"attemptCount"`
}

// Handler is the function signature for processing a queued action
type Handler func(ctx context.Context, action QueuedAction) error

// DroppedRecorder receives actions that exhausted their attempts
type DroppedRecorder interface {
	// Record logs a dropped action. It never re-queues it.
	Record(ctx context.Context, action QueuedAction, reason string) error
}
