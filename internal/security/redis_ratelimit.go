package security

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and pings it. It returns nil when the
// server is unreachable so callers can fall back to the in-process limiter.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: redis at %s unreachable, using in-process rate limiting: %v", addr, err)
		client.Close()
		return nil
	}
	return client
}

// Increments the window counter and starts its expiry on the first hit.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisRateLimiter is a fixed-window limiter shared by every server replica
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	rate   int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, prefix string, rate int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, rate: rate, window: window}
}

// Allow counts the request in the current window. Redis failures are returned
// together with true so a Redis outage does not lock users out.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return true, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	return count <= int64(l.rate), nil
}
