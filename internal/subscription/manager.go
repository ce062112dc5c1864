package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// SeatCounter reports how many seats are free on a flight.
type SeatCounter interface {
	SeatsRemaining(ctx context.Context, flightID int64) (int, error)
}

type waiter struct {
	need int
	done chan int
}

// Manager lets callers wait until a flight has at least N free seats. Waiters
// are re-checked each time Notify is called for their flight.
type Manager struct {
	seats SeatCounter
	log   *slog.Logger

	mu      sync.Mutex
	waiters map[int64]map[*waiter]struct{}
}

func NewManager(seats SeatCounter, log *slog.Logger) *Manager {
	return &Manager{
		seats:   seats,
		log:     log,
		waiters: make(map[int64]map[*waiter]struct{}),
	}
}

// Wait blocks until flightID has at least need free seats and returns the
// count seen. It returns ctx.Err() when ctx ends first.
func (m *Manager) Wait(ctx context.Context, flightID int64, need int) (int, error) {
	const op = "subscription.Manager.Wait"

	if need < 1 {
		need = 1
	}

	// Register before the first check so a Notify racing with it is not lost.
	w := &waiter{need: need, done: make(chan int, 1)}
	m.add(flightID, w)
	defer m.remove(flightID, w)

	free, err := m.seats.SeatsRemaining(ctx, flightID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}
	if free >= need {
		return free, nil
	}

	select {
	case free := <-w.done:
		return free, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Notify resolves the waiters of flightID whose threshold is now met.
func (m *Manager) Notify(ctx context.Context, flightID int64) error {
	const op = "subscription.Manager.Notify"

	if m.Pending(flightID) == 0 {
		return nil
	}

	free, err := m.seats.SeatsRemaining(ctx, flightID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resolved := 0
	for w := range m.waiters[flightID] {
		if w.need > free {
			continue
		}
		select {
		case w.done <- free:
			resolved++
		default:
		}
		delete(m.waiters[flightID], w)
	}
	if len(m.waiters[flightID]) == 0 {
		delete(m.waiters, flightID)
	}

	if resolved > 0 && m.log != nil {
		m.log.Debug("subscriptions resolved",
			slog.Int64("flight_id", flightID),
			slog.Int("seats_remaining", free),
			slog.Int("resolved", resolved),
		)
	}

	return nil
}

// Pending returns the number of callers waiting on flightID.
func (m *Manager) Pending(flightID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters[flightID])
}

func (m *Manager) add(flightID int64, w *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiters[flightID] == nil {
		m.waiters[flightID] = make(map[*waiter]struct{})
	}
	m.waiters[flightID][w] = struct{}{}
}

func (m *Manager) remove(flightID int64, w *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.waiters[flightID], w)
	if len(m.waiters[flightID]) == 0 {
		delete(m.waiters, flightID)
	}
}
