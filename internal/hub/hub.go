// Package hub fans out change notifications to live listeners of a collection.
package hub

import "sync"

// Hub keeps one notification channel per listener, keyed by collection path.
// Notifications carry no payload and coalesce: a listener that has not yet
// drained its channel receives a single pending signal no matter how many
// changes happened meanwhile. Listeners re-read the collection on every signal.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func New() *Hub {
	return &Hub{listeners: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers a listener for key. The returned cancel func is idempotent.
func (h *Hub) Subscribe(key string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	set, ok := h.listeners[key]
	if !ok {
		set = make(map[chan struct{}]struct{})
		h.listeners[key] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.listeners[key]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.listeners, key)
				}
			}
		})
	}
}

// Publish signals every listener of key without blocking.
func (h *Hub) Publish(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners returns the number of listeners registered for key.
func (h *Hub) Listeners(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[key])
}
