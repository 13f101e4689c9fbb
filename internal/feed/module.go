package feed

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/perkwell/payout/internal/config"
)

// Module wires the redis-backed change feed transport. When no redis
// address is configured, the client resolves to nil and the
// reconciliation poll remains the only consistency mechanism. The
// publisher binding lives in the app module, next to its consumers.
var Module = fx.Options(
	fx.Provide(newRedisClient),
	fx.Provide(newStream),
	fx.Invoke(registerLifecycle),
)

func newRedisClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddress == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
}

func newStream(client *redis.Client) Stream {
	if client == nil {
		return nil
	}
	return NewRedisStream(client)
}

func registerLifecycle(lc fx.Lifecycle, client *redis.Client) {
	if client == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
}
