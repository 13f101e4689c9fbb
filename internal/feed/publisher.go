package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/perkwell/payout/internal/domain/model"
)

// Channel carries every withdrawal and transfer row mutation.
const Channel = "payout.changes"

// RedisPublisher pushes change events onto the feed channel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps an existing redis client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish serializes the event and broadcasts it.
func (p *RedisPublisher) Publish(ctx context.Context, ev model.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}
