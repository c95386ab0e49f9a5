// Package store persists the queue in a single named slot.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the slot has never been written
var ErrNotFound = errors.New("slot not found")

// Store represents a durable key/value slot backend
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Forget(ctx context.Context, key string) error
}
