package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry stores the mapping between action types and handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Handle adds a raw handler for a given action type
func (r *Registry) Handle(actionType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[actionType] = handler
}

// Register adds a typed handler for the action variant A.
// The payload is decoded into A before the handler runs.
func Register[A Action](r *Registry, handler func(ctx context.Context, id string, action A) error) {
	var zero A
	r.Handle(zero.ActionType(), func(ctx context.Context, qa QueuedAction) error {
		a, err := Decode[A](qa)
		if err != nil {
			// a payload that does not decode will never decode
			return Permanent(err)
		}
		return handler(ctx, qa.ID, a)
	})
}

// GetHandler retrieves a handler by action type
func (r *Registry) GetHandler(actionType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if handler, ok := r.handlers[actionType]; ok {
		return handler, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoHandler, actionType)
}

// Types lists registered action types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
