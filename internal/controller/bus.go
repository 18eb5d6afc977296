package controller

import (
	"log"
	"sync"
)

// Bus fans events out from the controller loop to any number of consumers
// (websocket stream, metrics collector, MQTT bridge).
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
}

func NewBus() *Bus {
	return &Bus{subscribers: make([]chan Event, 0)}
}

// Publish sends an event to all subscribers. Sends are non-blocking: a slow
// subscriber loses events rather than stalling the controller loop.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub <- e:
		default:
			log.Println("Dropping event: subscriber channel is full")
		}
	}
}

// Subscribe returns a new buffered channel receiving published events.
func (b *Bus) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 100)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// CloseAll closes every subscriber channel; call once publishing is done.
func (b *Bus) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}
