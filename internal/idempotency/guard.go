// Package idempotency keeps one user action from issuing more than one
// provider write while the first is still in flight.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "billingpulse:idempotency:"

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrEmptyKey   = errors.New("idempotency key is empty")
	ErrInvalidTTL = errors.New("idempotency ttl must be positive")
)

// Guard claims idempotency keys. Acquire returns ok=false when another caller
// holds the key; the returned token must be passed back to Release.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type RedisGuard struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if ttl <= 0 {
		return "", false, ErrInvalidTTL
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the key only while it still belongs to token.
func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	key = strings.TrimSpace(key)
	if key == "" || token == "" {
		return nil
	}
	return g.script.Run(ctx, g.client, []string{keyPrefix + key}, token).Err()
}

// NoopGuard admits every caller. It is used when redis is not configured.
type NoopGuard struct{}

func (NoopGuard) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if strings.TrimSpace(key) == "" {
		return "", false, ErrEmptyKey
	}
	if ttl <= 0 {
		return "", false, ErrInvalidTTL
	}
	return "noop", true, nil
}

func (NoopGuard) Release(context.Context, string, string) error { return nil }
