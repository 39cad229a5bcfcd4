package events

import "sync"

// Handler receives published events. Handlers must not block; publishing
// happens on request and sweep goroutines.
type Handler func(event string, payload any)

// Bus is a minimal in-process observer registry. Delivery is best-effort
// and synchronous; there is no buffering and no delivery guarantee.
type Bus struct {
	mu   sync.RWMutex
	subs []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.subs = append(b.subs, h)
	b.mu.Unlock()
}

func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, h := range subs {
		h(event, payload)
	}
}
