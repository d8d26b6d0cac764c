package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Bridge relays change events between server instances over a Redis
// pub/sub channel so every instance's hub sees every store mutation.
type Bridge struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	origin  string
}

func NewBridge(rdb *redis.Client, hub *Hub, channel string) *Bridge {
	return &Bridge{
		rdb:     rdb,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// Publish delivers the event locally and broadcasts it to the other
// instances. Broadcast failures are logged, never surfaced: the local hub
// already saw the event and remote clients recover on their next notice.
func (b *Bridge) Publish(e Event) {
	e.Origin = b.origin
	b.hub.Publish(e)

	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("realtime: marshaling event: %v", err)
		return
	}
	if err := b.rdb.Publish(context.Background(), b.channel, payload).Err(); err != nil {
		log.Printf("realtime: broadcasting event: %v", err)
	}
}

// Run consumes remote events until ctx is cancelled, re-injecting them
// into the local hub. Events this instance published are skipped.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Printf("realtime: dropping malformed event: %v", err)
				continue
			}
			if e.Origin == b.origin {
				continue
			}
			b.hub.Publish(e)
		}
	}
}
