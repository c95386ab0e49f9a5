package notice

import (
	"context"
	"sync"
)

// ChannelNotifier delivers notices on a buffered channel.
// When the buffer is full the notice is discarded; notices are transient.
type ChannelNotifier struct {
	ch chan Notice
}

func NewChannelNotifier(size int) *ChannelNotifier {
	return &ChannelNotifier{ch: make(chan Notice, size)}
}

func (n *ChannelNotifier) Notify(ctx context.Context, notice Notice) {
	select {
	case n.ch <- notice:
	default:
	}
}

// C returns the receive side
func (n *ChannelNotifier) C() <-chan Notice {
	return n.ch
}

// Drain returns every buffered notice without blocking
func (n *ChannelNotifier) Drain() []Notice {
	var out []Notice
	for {
		select {
		case notice := <-n.ch:
			out = append(out, notice)
		default:
			return out
		}
	}
}

// Recorder keeps every notice in memory
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(ctx context.Context, notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

// Notices returns a copy of everything recorded so far
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Kinds returns the recorded kinds in order
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.notices))
	for _, n := range r.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// Multi fans a notice out to several notifiers
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, notice Notice) {
	for _, n := range m {
		n.Notify(ctx, notice)
	}
}
