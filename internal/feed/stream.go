package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/perkwell/payout/internal/domain/model"
)

// Subscription is one live attachment to the change stream.
type Subscription interface {
	// Events delivers decoded change events until the subscription dies.
	Events() <-chan model.ChangeEvent
	// Errs reports a channel-level failure; after a receive the
	// subscription is dead and must be reopened.
	Errs() <-chan error
	Close() error
}

// Stream opens subscriptions to the change channel.
type Stream interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// RedisStream implements Stream over redis pub/sub.
type RedisStream struct {
	client *redis.Client
}

// NewRedisStream wraps an existing redis client.
func NewRedisStream(client *redis.Client) *RedisStream {
	return &RedisStream{client: client}
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan model.ChangeEvent
	errs   chan error
	cancel context.CancelFunc
}

// Subscribe attaches to the channel and starts decoding messages.
func (s *RedisStream) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := s.client.Subscribe(ctx, Channel)
	// Receive forces the SUBSCRIBE round trip so failures surface here
	// instead of silently on the message channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan model.ChangeEvent),
		errs:   make(chan error, 1),
		cancel: cancel,
	}

	go func() {
		defer close(sub.events)
		ch := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					select {
					case sub.errs <- context.Canceled:
					default:
					}
					return
				}
				var ev model.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case <-runCtx.Done():
					return
				case sub.events <- ev:
				}
			}
		}
	}()

	return sub, nil
}

func (s *redisSubscription) Events() <-chan model.ChangeEvent { return s.events }
func (s *redisSubscription) Errs() <-chan error               { return s.errs }

func (s *redisSubscription) Close() error {
	s.cancel()
	return s.pubsub.Close()
}
