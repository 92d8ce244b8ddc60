package ratelimit

import (
	"context"
	"fmt"
	"time"

	"notigram/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

var _ notification.SharedGate = (*RedisGate)(nil)

// keyTTLSlack keeps the timestamp key alive a little past the interval.
const keyTTLSlack = time.Minute

// allowScript applies the gate rule atomically on the Redis server clock:
// accept when no send is recorded or last + interval < now, then record now.
var allowScript = redis.NewScript(`
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
local interval = tonumber(ARGV[1])
local last = redis.call('GET', KEYS[1])
if last and tonumber(last) + interval >= now then
	return 0
end
redis.call('SET', KEYS[1], now, 'PX', ARGV[2])
return 1
`)

// RedisGate shares the last accepted send time between processes that
// notify the same chat.
type RedisGate struct {
	client redis.Scripter
	key    string
}

// NewRedisGate creates a Redis-backed shared gate for the given chat.
func NewRedisGate(client redis.Scripter, chatID string) *RedisGate {
	return &RedisGate{
		client: client,
		key:    Key(chatID),
	}
}

// NewRedisClient creates a Redis client for the shared gate.
func NewRedisClient(redisAddr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
}

// Key returns the Redis key holding a chat's last accepted send time.
func Key(chatID string) string {
	return fmt.Sprintf("notigram:gate:%s", chatID)
}

// Allow checks the shared gate and records the send when accepted.
func (g *RedisGate) Allow(ctx context.Context, minInterval time.Duration) (bool, error) {
	ttl := minInterval + keyTTLSlack
	res, err := allowScript.Run(ctx, g.client, []string{g.key},
		minInterval.Milliseconds(),
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("checking shared rate gate: %w", err)
	}
	return res == 1, nil
}
