package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const DefaultTimeout = 5 * time.Second

var ErrTimeout = errors.New("timed out waiting for flight lock")

// Locker grants exclusive access to one flight at a time. Lock blocks for
// at most the locker's timeout; the returned unlock func is idempotent.
type Locker interface {
	Lock(ctx context.Context, flightID int64) (unlock func(), err error)
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Local is an in-process Locker. Entries are reference counted and dropped
// once no goroutine holds or waits on them.
type Local struct {
	timeout time.Duration

	mu      sync.Mutex
	flights map[int64]*entry
}

func NewLocal(timeout time.Duration) *Local {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Local{
		timeout: timeout,
		flights: make(map[int64]*entry),
	}
}

var _ Locker = (*Local)(nil)

func (l *Local) Lock(ctx context.Context, flightID int64) (func(), error) {
	const op = "lock.Local.Lock"

	e := l.acquireEntry(flightID)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.releaseEntry(flightID)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: flight %d:%w", op, flightID, ErrTimeout)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.releaseEntry(flightID)
		})
	}, nil
}

func (l *Local) acquireEntry(flightID int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.flights[flightID]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.flights[flightID] = e
	}
	e.refs++

	return e
}

func (l *Local) releaseEntry(flightID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.flights[flightID]
	if !ok {
		return
	}

	e.refs--
	if e.refs == 0 {
		delete(l.flights, flightID)
	}
}

// Len reports how many flights currently have holders or waiters.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.flights)
}
