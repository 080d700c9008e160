// internal/realtime/broadcaster.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/pkg/redis"
)

const channelPrefix = "lucro:rooms:"

// Broadcaster publishes room events on Redis so every replica's hub
// delivers them to its own subscribers.
type Broadcaster struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewBroadcaster(client *redis.Client, hub *Hub, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{client: client, hub: hub, logger: logger}
}

func (b *Broadcaster) Notify(ctx context.Context, room, event string, data interface{}) error {
	ev, err := NewEvent(event, data)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channelPrefix+room, msg); err != nil {
		return fmt.Errorf("failed to publish %s to room %s: %w", event, room, err)
	}
	return nil
}

// Run relays published events into the local hub until ctx is done
func (b *Broadcaster) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to room events: %w", err)
	}
	b.logger.Info("relaying room events from redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			room, ev, err := decodeMessage(msg.Channel, msg.Payload)
			if err != nil {
				b.logger.Warn("ignoring malformed room event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			b.hub.Emit(room, ev)
		}
	}
}

func decodeMessage(channel, payload string) (string, Event, error) {
	room := strings.TrimPrefix(channel, channelPrefix)
	if room == channel || room == "" {
		return "", Event{}, fmt.Errorf("unexpected channel %q", channel)
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return "", Event{}, err
	}
	if ev.Name == "" {
		return "", Event{}, fmt.Errorf("event has no name")
	}
	return room, ev, nil
}
