package notify

import (
	"context"
	"errors"
)

// Notifier is told that seats on a flight may have been freed.
type Notifier interface {
	Notify(ctx context.Context, flightID int64) error
}

type Func func(ctx context.Context, flightID int64) error

func (f Func) Notify(ctx context.Context, flightID int64) error {
	return f(ctx, flightID)
}

// Multi fans a notification out to every notifier. All of them are called
// even when some fail; the failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, flightID int64) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, flightID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
