package server

import (
	"sync"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
)

// Broker is an in-process pub/sub for engine events, keyed by player ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan engine.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan engine.Event]struct{}),
	}
}

// Subscribe returns a channel that receives the player's events.
func (b *Broker) Subscribe(playerID string) chan engine.Event {
	ch := make(chan engine.Event, 32)
	b.mu.Lock()
	if b.subs[playerID] == nil {
		b.subs[playerID] = make(map[chan engine.Event]struct{})
	}
	b.subs[playerID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(playerID string, ch chan engine.Event) {
	b.mu.Lock()
	delete(b.subs[playerID], ch)
	if len(b.subs[playerID]) == 0 {
		delete(b.subs, playerID)
	}
	b.mu.Unlock()
}

// Publish fans ev out to the player's subscribers.
func (b *Broker) Publish(playerID string, ev engine.Event) {
	b.mu.RLock()
	for ch := range b.subs[playerID] {
		select {
		case ch <- ev:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
