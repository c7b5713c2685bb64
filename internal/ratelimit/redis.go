package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the sorted set shared by every instance.
const DefaultRedisKey = "roaster:llm:dispatches"

// reserveScript trims the log, checks the cap and records the dispatch in one
// atomic step.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local span = tonumber(ARGV[2])
local cap = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - span)
if redis.call('ZCARD', key) >= cap then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, span)
return 1
`)

// RedisClient is the subset of go-redis used by RedisWindow; *redis.Client
// satisfies it.
type RedisClient interface {
	redis.Scripter
	ZCount(ctx context.Context, key, min, max string) *redis.IntCmd
}

// RedisWindow is a sorted-set sliding log shared across instances. Scores are
// Unix milliseconds.
type RedisWindow struct {
	client RedisClient
	key    string
	cap    int
	span   time.Duration
}

func NewRedisWindow(client RedisClient, key string, cap int, span time.Duration) *RedisWindow {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisWindow{client: client, key: key, cap: cap, span: span}
}

func (w *RedisWindow) Reserve(ctx context.Context, now time.Time) (bool, error) {
	member := strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()
	res, err := reserveScript.Run(ctx, w.client, []string{w.key},
		now.UnixMilli(), w.span.Milliseconds(), w.cap, member).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (w *RedisWindow) Count(ctx context.Context, now time.Time) (int, error) {
	lower := "(" + strconv.FormatInt(now.Add(-w.span).UnixMilli(), 10)
	n, err := w.client.ZCount(ctx, w.key, lower, "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
