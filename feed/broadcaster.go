// Package feed pushes newly posted tvits to browsers over Server-Sent Events.
package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/user/tvitter-go/logging"
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before further events are dropped for it.
const subscriberBuffer = 32

type subscriber struct {
	events chan Event
}

// Broadcaster fans events out to every connected subscriber.
type Broadcaster struct {
	subscribers map[string]*subscriber
	mu          sync.RWMutex
	log         logging.Logger
}

func NewBroadcaster(log logging.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*subscriber),
		log:         log,
	}
}

// Subscribe registers a new subscriber and returns its id and event channel.
// The channel is closed by Unsubscribe.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	sub := &subscriber{events: make(chan Event, subscriberBuffer)}
	b.subscribers[id] = sub
	b.log.Debug(context.Background(), "feed subscriber registered", "subscriber_id", id, "subscribers", len(b.subscribers))

	return id, sub.events
}

// Publish delivers event to every subscriber without blocking. Subscribers
// whose buffer is full miss the event.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
			b.log.Warn(context.Background(), "dropping feed event for slow subscriber", "subscriber_id", id, "event", event.Name)
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel. Unknown ids are ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	close(sub.events)
	delete(b.subscribers, id)
	b.log.Debug(context.Background(), "feed subscriber removed", "subscriber_id", id, "subscribers", len(b.subscribers))
}

// Count returns the number of connected subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
