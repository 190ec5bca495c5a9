// Package broadcast fans state-change events out to subscribed observers.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"prodplane/pkg/api"

	"github.com/google/uuid"
)

// subscriberBuffer is how many undelivered events a subscriber may lag
// behind before it is dropped.
const subscriberBuffer = 16

// BusPublisher mirrors events to an external message bus. Implemented by
// natsclient.Publisher; nil disables mirroring.
type BusPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

// Subscriber is one observer's handle. Events arrive on C in commit order.
// The channel is closed when the subscriber is dropped or unsubscribed.
type Subscriber struct {
	C chan api.Event
}

// Hub delivers every broadcast event to all current subscribers. Delivery
// to one observer never blocks on another: a subscriber whose buffer is
// full is dropped from the set.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	bus    BusPublisher
	logger *slog.Logger
}

// New creates a hub. bus may be nil.
func New(bus BusPublisher, logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		bus:    bus,
		logger: logger,
	}
}

// Subscribe registers a new observer.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan api.Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes an observer and closes its channel. Safe to call
// for a subscriber the hub already dropped.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.C)
	}
}

// SubscriberCount returns the current number of observers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast stamps the event and delivers it to every subscriber.
// Mutators call this after each committed change, so holding the hub
// mutex for the whole pass gives each observer commit order.
func (h *Hub) Broadcast(ctx context.Context, event api.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	for sub := range h.subs {
		select {
		case sub.C <- event:
		default:
			// Observer fell too far behind; drop it rather than stall
			// the rest.
			delete(h.subs, sub)
			close(sub.C)
			h.logger.Warn("dropped slow event subscriber")
		}
	}
	h.mu.Unlock()

	if h.bus != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal event for bus", "error", err)
			return
		}
		subject := "prodplane.events." + string(event.Type)
		if err := h.bus.Publish(ctx, subject, payload); err != nil {
			h.logger.Warn("failed to mirror event to bus", "subject", subject, "error", err)
		}
	}
}
