package reservation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/kirinyoku/skyseat/internal/repository/memory"
	"github.com/kirinyoku/skyseat/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const flightID = int64(100)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, flightID int64) error {
	return m.Called(ctx, flightID).Error(0)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) InvalidateFlight(ctx context.Context, flightID int64) error {
	return m.Called(ctx, flightID).Error(0)
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, suffix string) (bool, int64, time.Duration, error) {
	return false, 11, 2 * time.Second, nil
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()

	at, err := domain.NewAircraftType(1, "B787", []domain.SeatingZone{
		{Name: "business", FirstRow: 1, LastRow: 8, Letters: "ACDGHK", UnitPrice: 3000},
		{Name: "economy", FirstRow: 9, LastRow: 60, Letters: "ABCDEFGHJK", UnitPrice: 675},
	})
	require.NoError(t, err)

	s := memory.NewStore()
	require.NoError(t, s.ImportCatalog(context.Background(), &domain.Catalog{
		Airports:      []domain.Airport{{ID: 1, Code: "OSL"}, {ID: 2, Code: "JFK"}},
		AircraftTypes: []*domain.AircraftType{at},
		Flights: []domain.CatalogFlight{
			{ID: flightID, Name: "SK909", Origin: "OSL", Destination: "JFK", AircraftTypeID: 1},
			{ID: flightID + 1, Name: "SK911", Origin: "OSL", Destination: "JFK", AircraftTypeID: 1},
		},
	}))
	return s
}

func newService(t *testing.T, deps reservation.Deps) (*reservation.Service, *memory.Store, *lock.Local) {
	t.Helper()

	store := newStore(t)
	locker := lock.NewLocal(time.Second)
	return reservation.New(store, locker, deps), store, locker
}

func bookedSeats(t *testing.T, store *memory.Store, id int64) []string {
	t.Helper()

	f, err := store.GetFlight(context.Background(), id)
	require.NoError(t, err)
	return f.BookedSeats()
}

func TestMakeBooking_Scenario(t *testing.T) {
	svc, store, _ := newService(t, reservation.Deps{})
	ctx := context.Background()

	b, err := svc.MakeBooking(ctx, 1, flightID, []string{"23J", "36E", "58C"}, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2025, b.TotalCost)
	assert.Equal(t, []string{"23J", "36E", "58C"}, b.Seats)

	_, err = svc.MakeBooking(ctx, 2, flightID, []string{"36E", "58C", "48J"}, "")
	assert.ErrorIs(t, err, reservation.ErrSeatUnavailable)

	var se *domain.SeatError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "36E", se.Seat)

	assert.Equal(t, []string{"23J", "36E", "58C"}, bookedSeats(t, store, flightID))
	list, err := store.ListBookingsByUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMakeBooking_Errors(t *testing.T) {
	svc, _, _ := newService(t, reservation.Deps{})
	ctx := context.Background()

	_, err := svc.MakeBooking(ctx, 1, flightID, nil, "")
	assert.ErrorIs(t, err, reservation.ErrEmptyRequest)

	_, err = svc.MakeBooking(ctx, 1, flightID, []string{"500F"}, "")
	assert.ErrorIs(t, err, reservation.ErrInvalidSeat)

	_, err = svc.MakeBooking(ctx, 1, flightID, []string{"1B"}, "")
	assert.ErrorIs(t, err, reservation.ErrInvalidSeat)

	_, err = svc.MakeBooking(ctx, 1, flightID, []string{"10A", "10a"}, "")
	assert.ErrorIs(t, err, reservation.ErrSeatUnavailable)

	_, err = svc.MakeBooking(ctx, 1, 999, []string{"10A"}, "")
	assert.ErrorIs(t, err, reservation.ErrFlightNotFound)
}

func TestMakeBooking_RateLimited(t *testing.T) {
	svc, store, _ := newService(t, reservation.Deps{Limiter: denyLimiter{}})

	_, err := svc.MakeBooking(context.Background(), 1, flightID, []string{"10A"}, "user:1")
	assert.ErrorIs(t, err, reservation.ErrRateLimited)

	var rl reservation.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 2*time.Second, rl.RetryAfter)
	assert.Empty(t, bookedSeats(t, store, flightID))
}

func TestMakeBooking_InvalidatesCache(t *testing.T) {
	cache := &mockCache{}
	cache.On("InvalidateFlight", mock.Anything, flightID).Return(errors.New("redis down")).Once()

	svc, store, _ := newService(t, reservation.Deps{Cache: cache})

	_, err := svc.MakeBooking(context.Background(), 1, flightID, []string{"10A"}, "")
	require.NoError(t, err, "cache failures are not fatal")
	assert.Equal(t, []string{"10A"}, bookedSeats(t, store, flightID))
	cache.AssertExpectations(t)
}

func TestMakeBooking_ConcurrentDisjoint(t *testing.T) {
	svc, store, _ := newService(t, reservation.Deps{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	requests := [][]string{{"20A", "20B"}, {"21A", "21B"}}
	for i, seats := range requests {
		wg.Add(1)
		go func(i int, seats []string) {
			defer wg.Done()
			_, errs[i] = svc.MakeBooking(context.Background(), int64(i+1), flightID, seats, "")
		}(i, seats)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, []string{"20A", "20B", "21A", "21B"}, bookedSeats(t, store, flightID))
}

func TestMakeBooking_ConcurrentOverlapping(t *testing.T) {
	svc, store, _ := newService(t, reservation.Deps{})

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.MakeBooking(context.Background(), int64(i+1), flightID, []string{"30C", "30D"}, "")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, reservation.ErrSeatUnavailable)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, []string{"30C", "30D"}, bookedSeats(t, store, flightID))
}

func TestMakeBooking_LockTimeout(t *testing.T) {
	store := newStore(t)
	locker := lock.NewLocal(30 * time.Millisecond)
	svc := reservation.New(store, locker, reservation.Deps{})

	unlock, err := locker.Lock(context.Background(), flightID)
	require.NoError(t, err)

	_, err = svc.MakeBooking(context.Background(), 1, flightID, []string{"10A"}, "")
	assert.ErrorIs(t, err, reservation.ErrLockTimeout)
	assert.Empty(t, bookedSeats(t, store, flightID))

	// Other flights are not affected.
	_, err = svc.MakeBooking(context.Background(), 1, flightID+1, []string{"10A"}, "")
	assert.NoError(t, err)

	unlock()
	_, err = svc.MakeBooking(context.Background(), 1, flightID, []string{"10A"}, "")
	assert.NoError(t, err)
}

func TestCancelBooking(t *testing.T) {
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, flightID).Return(nil).Once()

	svc, store, _ := newService(t, reservation.Deps{Notifier: n})
	ctx := context.Background()

	b, err := svc.MakeBooking(ctx, 1, flightID, []string{"12A", "12B"}, "")
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, 2, b.ID)
	assert.ErrorIs(t, err, reservation.ErrBookingNotFound)
	_, err = svc.CancelBooking(ctx, 1, uuid.New())
	assert.ErrorIs(t, err, reservation.ErrBookingNotFound)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)

	removed, err := svc.CancelBooking(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, removed.ID)
	assert.Empty(t, bookedSeats(t, store, flightID))
	n.AssertNumberOfCalls(t, "Notify", 1)

	_, err = svc.CancelBooking(ctx, 1, b.ID)
	assert.ErrorIs(t, err, reservation.ErrBookingNotFound)
	n.AssertNumberOfCalls(t, "Notify", 1)

	_, err = svc.MakeBooking(ctx, 3, flightID, []string{"12A"}, "")
	assert.NoError(t, err)
}

func TestCancelBooking_NotifierFailureKeepsCancellation(t *testing.T) {
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, flightID).Return(errors.New("broker down")).Once()

	svc, store, _ := newService(t, reservation.Deps{Notifier: n})
	ctx := context.Background()

	b, err := svc.MakeBooking(ctx, 1, flightID, []string{"12A"}, "")
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.Empty(t, bookedSeats(t, store, flightID))
	n.AssertExpectations(t)
}

func TestCancelBooking_NotifiedAfterLockRelease(t *testing.T) {
	store := newStore(t)
	locker := lock.NewLocal(30 * time.Millisecond)

	var lockErr error
	n := notifyFunc(func(ctx context.Context, id int64) error {
		unlock, err := locker.Lock(ctx, id)
		lockErr = err
		if err == nil {
			unlock()
		}
		return nil
	})
	svc := reservation.New(store, locker, reservation.Deps{Notifier: n})
	ctx := context.Background()

	b, err := svc.MakeBooking(ctx, 1, flightID, []string{"12A"}, "")
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.NoError(t, lockErr)
}

type notifyFunc func(ctx context.Context, flightID int64) error

func (f notifyFunc) Notify(ctx context.Context, flightID int64) error { return f(ctx, flightID) }
