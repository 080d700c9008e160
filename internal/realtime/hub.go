// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/metrics"
)

const subscriptionBuffer = 16

// Event is a named message delivered to a room
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Subscription receives the events of one room until it leaves
type Subscription struct {
	Room   string
	Events <-chan Event

	events chan Event
}

// Hub fans room events out to the subscribers connected to this process.
// Slow subscribers miss events rather than block the emitter.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{}
	closed bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *Hub) Join(room string) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{Room: room, Events: ch, events: ch}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return sub
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Subscription]struct{})
		h.rooms[room] = members
	}
	members[sub] = struct{}{}
	h.mu.Unlock()

	metrics.Subscribers.Inc()
	h.logger.Debug("joined room", zap.String("room", room))
	return sub
}

// Leave removes the subscription and closes its channel. Safe to call twice.
func (h *Hub) Leave(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[sub.Room]
	if !ok {
		return
	}
	if _, ok := members[sub]; !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(h.rooms, sub.Room)
	}
	close(sub.events)
	metrics.Subscribers.Dec()
}

// Close ends every subscription so open streams return. Joins after Close
// get an already closed subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for room, members := range h.rooms {
		for sub := range members {
			close(sub.events)
			metrics.Subscribers.Dec()
		}
		delete(h.rooms, room)
	}
	h.logger.Info("closed all room subscriptions")
}

// Emit delivers ev to every local subscriber of room and reports how many
// received it.
func (h *Hub) Emit(room string, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.rooms[room] {
		select {
		case sub.events <- ev:
			delivered++
		default:
			h.logger.Warn("dropping event for slow subscriber",
				zap.String("room", room),
				zap.String("event", ev.Name))
		}
	}
	if delivered > 0 {
		metrics.NotificationsSent.WithLabelValues(ev.Name).Add(float64(delivered))
	}
	return delivered
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Notify emits to local subscribers only. Use a Broadcaster when more than
// one replica serves subscriptions.
func (h *Hub) Notify(ctx context.Context, room, event string, data interface{}) error {
	ev, err := NewEvent(event, data)
	if err != nil {
		return err
	}
	h.Emit(room, ev)
	return nil
}

func NewEvent(name string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s event: %w", name, err)
	}
	return Event{Name: name, Data: raw}, nil
}
