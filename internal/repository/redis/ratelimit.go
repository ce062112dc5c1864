package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow keeps one sorted-set member per accepted hit, scored by
// its time in ms. A rejected hit is removed again so that callers retrying
// while limited do not push their own window forward.
//
// KEYS[1] key, ARGV: now_ms, window_ms, limit, member.
// Returns {allowed, count, retry_ms}.
const slidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, 'NX', now, ARGV[4])
local count = redis.call('ZCARD', key)
redis.call('PEXPIRE', key, window)

if count <= limit then
  return {1, count, 0}
end

redis.call('ZREM', key, ARGV[4])
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = window
if oldest[2] then
  retry = math.max(0, window - (now - tonumber(oldest[2])))
end
return {0, count - 1, retry}
`

// SlidingWindowLimiter allows at most limit hits per key within window.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script

	now    func() time.Time
	member func() string
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	prefix string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindow),
		now:    time.Now,
		member: func() string { return randomHex(12) },
	}
}

func (l *SlidingWindowLimiter) key(suffix string) string {
	return KeyRateLimit(l.prefix, suffix)
}

// Allow records a hit for suffix and reports whether it fits the window.
// When it does not, retryAfter is how long until the oldest hit expires.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	key := l.key(suffix)
	nowMs := l.now().UnixMilli()
	winMs := l.window.Milliseconds()
	member := l.member()

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{key},
		nowMs, winMs, l.limit, member,
	).Result()
	if err != nil {
		return false, 0, 0, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}

	var vals [3]int64
	for i, v := range arr {
		if vals[i], err = toInt(v); err != nil {
			return false, 0, 0, fmt.Errorf("ratelimit: %w", err)
		}
	}

	return vals[0] == 1, vals[1], time.Duration(vals[2]) * time.Millisecond, nil
}

// toInt reads a Lua number reply. Integers arrive as int64; strings appear
// when a script returns a string-typed number.
func toInt(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected reply type %T", v)
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
