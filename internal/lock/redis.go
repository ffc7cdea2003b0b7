// internal/lock/redis.go
//
// Distributed create lock on Redis.

package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/config"
)

// keyPrefix namespaces lock keys.
const keyPrefix = "swregistry:lock:"

// retryEvery is the polling interval while a lock is held elsewhere.
const retryEvery = 25 * time.Millisecond

// DefaultTTL bounds how long a crashed holder can block others.
const DefaultTTL = 10 * time.Second

// release deletes the key only while it still carries our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// client is the slice of *redis.Client the lock needs.
type client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// Redis is the multi-node lock.
type Redis struct {
	rdb client
	ttl time.Duration
}

// NewRedis connects to cfg.Addr and pings it.
func NewRedis(ctx context.Context, cfg config.Redis) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedis(rdb, cfg.LockTTL), nil
}

func newRedis(rdb client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// Lock polls SET NX until it wins or ctx ends.
func (r *Redis) Lock(ctx context.Context, name string) (func(), error) {
	key := keyPrefix + name
	token := uuid.NewString()

	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(retryEvery)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		// Release must outlive a cancelled request context.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := release.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			zap.S().Warnw("lock release failed", "key", key, "err", err)
		}
	}, nil
}
