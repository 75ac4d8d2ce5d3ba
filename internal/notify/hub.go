// Package notify fans coin-balance-changed events out to any number of
// in-process listeners.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/model"
)

// subscriberBuffer is the number of undelivered events a listener may lag behind.
const subscriberBuffer = 16

// Hub broadcasts CoinEvents. Publishing never blocks: a listener whose buffer
// is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan model.CoinEvent
	nextID uint64
	closed bool
}

// NewHub creates a hub with no listeners.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan model.CoinEvent)}
}

// Subscribe registers a listener. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan model.CoinEvent, func()) {
	ch := make(chan model.CoinEvent, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to every listener.
func (h *Hub) Publish(ev model.CoinEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Uint64("subscriber", id).Str("username", ev.Username).Msg("Coin event dropped for slow listener")
		}
	}
}

// Subscribers returns the number of registered listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unregisters every listener and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
