package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/choplife/choplifeib/internal/logging"
)

// RedisBus fans profile updates out through Redis Pub/Sub, one channel per user.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func channelFor(userID uint) string {
	return fmt.Sprintf("choplife:profile:%d", userID)
}

func (b *RedisBus) Publish(ctx context.Context, update ProfileUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal profile update: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(update.UserID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish profile update: %w", err)
	}
	return nil
}

// Subscribe returns once the Redis subscription is confirmed, so updates
// published after it returns are delivered.
func (b *RedisBus) Subscribe(ctx context.Context, userID uint) (<-chan ProfileUpdate, error) {
	pubsub := b.client.Subscribe(ctx, channelFor(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan ProfileUpdate, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		log := logging.Component("realtime")
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var update ProfileUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("discarding malformed profile update")
					continue
				}
				select {
				case out <- update:
				default:
					log.Warn().Uint("user_id", userID).Msg("subscriber full, dropping profile update")
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *RedisBus) Close() error {
	return nil
}
