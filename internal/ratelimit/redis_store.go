package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RedisKeyPrefix = "scangate:ratelimit:"
	redisOpTimeout = 2 * time.Second
)

// Returns {count, remaining ttl in ms}. The counter stops at limit+1.
var hitScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count == 0 then
	redis.call("SET", KEYS[1], 1, "PX", ARGV[1])
	return {1, tonumber(ARGV[1])}
end
if count <= tonumber(ARGV[2]) then
	count = redis.call("INCR", KEYS[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}`)

// RedisStore shares windows between instances. Expiry is left to Redis key
// TTLs, so no sweep is needed.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// RedisStoreFactory returns a New-compatible factory namespacing keys per category.
func RedisStoreFactory(client redis.Scripter) func(Category) Store {
	return func(category Category) Store {
		return NewRedisStore(client, RedisKeyPrefix+string(category)+":")
	}
}

func (s *RedisStore) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Window, error) {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	res, err := hitScript.Run(opCtx, s.client, []string{s.prefix + key}, window.Milliseconds(), limit).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("ratelimit: redis hit: %w", err)
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}

	remaining := time.Duration(res[1]) * time.Millisecond
	return Window{
		Count: int(res[0]),
		Start: now.Add(remaining - window),
	}, nil
}
