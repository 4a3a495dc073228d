package lease

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a cross-replica lease built on SET NX PX.
type Redis struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedis(log *logger.Logger, rdb goredis.UniversalClient, prefix string) (*Redis, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Redis{
		log:    log.With("component", "RedisLease"),
		rdb:    rdb,
		prefix: strings.TrimSpace(prefix),
	}, nil
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	full := r.prefix + key
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			// The caller's ctx may already be done by the time release runs.
			rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, r.rdb, []string{full}, token).Err(); err != nil {
				r.log.Warn("lease release failed", "key", full, "error", err)
			}
		})
	}
	return release, true, nil
}
