// Package live turns store reads into reactive queries.
//
// A Hub is notified after every committed write. Each Query owns one
// goroutine that re-runs its read whenever the hub fires and delivers the
// fresh snapshot on its channel, until the query's context is cancelled or
// Close is called.
package live

import "sync"

// Hub fans out change notifications to subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers a listener. The returned channel receives a value after
// each Publish; bursts coalesce into a single pending notification. Call the
// returned func to unsubscribe.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// Publish notifies every subscriber. It never blocks.
func (h *Hub) Publish() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
			// Already pending
		}
	}
}

// Subscribers returns the current number of subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
