package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Bus is an in-process publish/subscribe hub.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type Bus struct {
	log    zerolog.Logger
	subs   map[int]chan Event
	mu     sync.RWMutex
	nextID int
}

// NewBus creates an empty bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:  log.With().Str("component", "event_bus").Logger(),
		subs: make(map[int]chan Event),
	}
}

// Publish delivers data to every current subscriber
func (b *Bus) Publish(module string, data EventData) {
	event := Event{
		Timestamp: time.Now(),
		Data:      data,
		Type:      data.EventType(),
		Module:    module,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.log.Warn().
				Int("subscriber", id).
				Str("event_type", string(event.Type)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// Subscribe returns a channel of events and a function that unsubscribes and closes it
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
