package uow_test

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/kirinyoku/skyseat/internal/repository"
	"github.com/kirinyoku/skyseat/internal/repository/memory"
	"github.com/kirinyoku/skyseat/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()

	at, err := domain.NewAircraftType(1, "ATR72", []domain.SeatingZone{
		{Name: "economy", FirstRow: 1, LastRow: 18, Letters: "ACDF", UnitPrice: 90},
	})
	require.NoError(t, err)

	s := memory.NewStore()
	require.NoError(t, s.ImportCatalog(context.Background(), &domain.Catalog{
		Airports:      []domain.Airport{{ID: 1, Code: "TRD"}, {ID: 2, Code: "BOO"}},
		AircraftTypes: []*domain.AircraftType{at},
		Flights: []domain.CatalogFlight{
			{ID: 1, Name: "WF1", Origin: "TRD", Destination: "BOO", AircraftTypeID: 1},
		},
	}))
	return s
}

func TestUoW_HooksRunAfterUnlock(t *testing.T) {
	locker := lock.NewLocal(50 * time.Millisecond)
	u := uow.NewUoW(newStore(t), locker)

	var hookRan bool
	err := u.Do(context.Background(), 1, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		after(func(ctx context.Context) {
			hookRan = true

			// The flight lock is free again once hooks run.
			unlock, err := locker.Lock(ctx, 1)
			if assert.NoError(t, err) {
				unlock()
			}
		})
		return nil
	})
	require.NoError(t, err)
	assert.True(t, hookRan)
}

func TestUoW_NoHooksOnError(t *testing.T) {
	locker := lock.NewLocal(50 * time.Millisecond)
	u := uow.NewUoW(newStore(t), locker)

	err := u.Do(context.Background(), 1, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		after(func(ctx context.Context) { t.Error("hook must not run") })
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, locker.Len())
}

func TestUoW_LockTimeout(t *testing.T) {
	locker := lock.NewLocal(30 * time.Millisecond)
	store := newStore(t)
	u := uow.NewUoW(store, locker)

	unlock, err := locker.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	called := false
	err = u.Do(context.Background(), 1, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, lock.ErrTimeout)
	assert.False(t, called)
}
