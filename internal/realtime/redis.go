package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// RedisBroker carries events over Redis pub/sub so every server instance
// can reach a user's open connections.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker wraps an existing client.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, userID string, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning so
// events published right after the call are not lost.
func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (<-chan domain.Event, func()) {
	out := make(chan domain.Event, subscriberBuffer)
	ps := b.client.Subscribe(ctx, Channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		rlog.Warn("subscribe failed", "user_id", userID, "error", err)
		ps.Close()
		close(out)
		return out, func() {}
	}

	var once sync.Once
	cancel := func() { once.Do(func() { ps.Close() }) }

	msgs := ps.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					rlog.Warn("bad payload", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- e:
				default:
				}
			}
		}
	}()
	return out, cancel
}
