package uow

import (
	"context"
	"fmt"

	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/kirinyoku/skyseat/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit
// and after the flight lock is released.
type AfterCommit func(ctx context.Context)

// UoW serialises writes to one flight: it takes the flight lock, runs the
// store transaction, releases the lock, then runs after-commit hooks.
type UoW struct {
	store  repository.Store
	locker lock.Locker
}

func NewUoW(store repository.Store, locker lock.Locker) *UoW {
	return &UoW{store: store, locker: locker}
}

// Do runs fn inside a transaction while holding the lock of flightID. Hooks
// registered through after run only when the transaction committed.
func (u *UoW) Do(
	ctx context.Context,
	flightID int64,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	const op = "uow.UoW.Do"

	unlock, err := u.locker.Lock(ctx, flightID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	var hooks []AfterCommit

	err = func() error {
		defer unlock()

		return u.store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
	}()
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
