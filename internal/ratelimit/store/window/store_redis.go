package window

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "phonebook:ratelimit:"

// allowScript increments the counter only while it is below the limit and
// sets the expiry on first use, atomically.
//
// KEYS[1] bucket key, ARGV[1] limit, ARGV[2] ttl in milliseconds.
// Returns {count, allowed}.
var allowScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= tonumber(ARGV[1]) then
	return {count, 0}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {count, 1}
`)

// RedisWindowStore keeps fixed-window counters in Redis so every server
// instance shares one budget per client.
type RedisWindowStore struct {
	client redis.Scripter
}

// NewRedisWindowStore constructs a Redis-backed counter store.
func NewRedisWindowStore(client redis.Scripter) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

// Allow runs the conditional increment script for key.
func (s *RedisWindowStore) Allow(ctx context.Context, key string, limit int, ttl time.Duration) (int, bool, error) {
	ttlMillis := ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}

	res, err := allowScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, limit, ttlMillis).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}
