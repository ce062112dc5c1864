package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds our token.
// KEYS[1] = key
// ARGV[1] = token
const luaUnlock = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// FlightLock is a lock.Locker shared by every instance using the same Redis.
// The key expires after lease so a crashed holder cannot block a flight
// forever.
type FlightLock struct {
	rdb     *redis.Client
	timeout time.Duration
	lease   time.Duration
	retry   time.Duration
	unlock  *redis.Script
	token   func() string
}

var _ lock.Locker = (*FlightLock)(nil)

func NewFlightLock(rdb *redis.Client, timeout, lease time.Duration) *FlightLock {
	if timeout <= 0 {
		timeout = lock.DefaultTimeout
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}

	return &FlightLock{
		rdb:     rdb,
		timeout: timeout,
		lease:   lease,
		retry:   25 * time.Millisecond,
		unlock:  redis.NewScript(luaUnlock),
		token:   func() string { return uuid.NewString() },
	}
}

func (l *FlightLock) Lock(ctx context.Context, flightID int64) (func(), error) {
	const op = "redis.FlightLock.Lock"

	key := KeyFlightLock(flightID)
	token := l.token()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s: flight %d:%w", op, flightID, lock.ErrTimeout)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if ok {
			break
		}

		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s: flight %d:%w", op, flightID, lock.ErrTimeout)
			}
			return nil, fmt.Errorf("%s:%w", op, ctx.Err())
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done.
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = l.unlock.Run(ctx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
