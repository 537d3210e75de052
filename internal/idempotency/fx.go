package idempotency

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/billingpulse/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("idempotency",
	fx.Provide(NewGuard),
)

// NewGuard returns a redis-backed guard when REDIS_ADDR is set and a no-op
// guard otherwise.
func NewGuard(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Guard {
	if cfg.Redis.Addr == "" {
		log.Info("idempotency guard disabled, redis not configured")
		return NoopGuard{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, idempotency keys will fail", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisGuard(client)
}
