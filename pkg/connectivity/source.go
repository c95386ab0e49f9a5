// Package connectivity reports online/offline transitions.
package connectivity

import "sync"

// Source is an online/offline event source
type Source interface {
	// Online reports the current state
	Online() bool
	// Subscribe registers fn for transitions. fn receives the new state and
	// must not block. The returned func cancels the subscription.
	Subscribe(fn func(online bool)) (cancel func())
}

// broadcaster holds the state and subscribers shared by every Source
type broadcaster struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

func newBroadcaster(online bool) *broadcaster {
	return &broadcaster{online: online, subs: make(map[int]func(bool))}
}

func (b *broadcaster) Online() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *broadcaster) Subscribe(fn func(bool)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// set updates the state and notifies subscribers on a transition only
func (b *broadcaster) set(online bool) bool {
	b.mu.Lock()
	if b.online == online {
		b.mu.Unlock()
		return false
	}
	b.online = online
	subs := make([]func(bool), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
	return true
}

// Manual is a Source driven by explicit SetOnline calls
type Manual struct {
	*broadcaster
}

func NewManual(online bool) *Manual {
	return &Manual{broadcaster: newBroadcaster(online)}
}

// SetOnline changes the state. It returns true when this was a transition.
func (m *Manual) SetOnline(online bool) bool {
	return m.set(online)
}
