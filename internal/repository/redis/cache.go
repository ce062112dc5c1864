package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through JSON cache for derived flight views. Entries carry
// a TTL and are dropped whenever a booking on their flight commits.
type Cache struct {
	rdb   *redis.Client
	loads singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// lookup decodes the entry under key. An entry that no longer decodes into
// T is reported as a miss so the next load overwrites it.
func lookup[T any](ctx context.Context, rdb *redis.Client, key string) (v T, ok bool, err error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}

	if json.Unmarshal(raw, &v) != nil {
		var zero T
		return zero, false, nil
	}

	return v, true, nil
}

// GetOrSetJSON returns the value under key, calling load on a miss and
// storing its result for ttl.
//
// Concurrent misses on one key share a single load. The shared load is
// detached from the caller's cancellation so that one caller giving up
// does not fail the others. If Redis cannot be read, load is called
// directly and nothing is stored.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	v, ok, err := lookup[T](ctx, c.rdb, key)
	if err != nil {
		return load(ctx)
	}
	if ok {
		return v, nil
	}

	ch := c.loads.DoChan(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		// A failed write only costs the next reader a load.
		if raw, err := json.Marshal(v); err == nil {
			_ = c.rdb.Set(ctx, key, string(raw), ttl).Err()
		}

		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// InvalidateFlight drops the cached booking info of a flight.
func (c *Cache) InvalidateFlight(ctx context.Context, flightID int64) error {
	return c.rdb.Del(ctx, KeyFlightBookingInfo(flightID)).Err()
}
