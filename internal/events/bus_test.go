package events

import (
	"sync"
	"testing"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(func(event string, payload any) {
		got = append(got, event)
	})

	bus.Publish("usage:flushed", map[string]string{"page": "/coloring"})
	bus.Publish("session:recorded", nil)

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0] != "usage:flushed" || got[1] != "session:recorded" {
		t.Errorf("unexpected event order: %v", got)
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish("daily:unique", nil)
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(func(event string, payload any) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	bus.Publish("daily:views", nil)

	if count != 3 {
		t.Errorf("expected all 3 subscribers to fire, got %d", count)
	}
}
