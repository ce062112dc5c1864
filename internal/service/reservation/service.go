package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/kirinyoku/skyseat/internal/notify"
	"github.com/kirinyoku/skyseat/internal/repository"
	"github.com/kirinyoku/skyseat/internal/uow"
)

type Cache interface {
	InvalidateFlight(ctx context.Context, flightID int64) error
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (bool, int64, time.Duration, error)
}

// Deps are the optional collaborators of the service. Nil fields are
// skipped.
type Deps struct {
	Cache    Cache
	Limiter  Limiter
	Notifier notify.Notifier
	Logger   *slog.Logger
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	cache    Cache
	limiter  Limiter
	notifier notify.Notifier
	log      *slog.Logger
}

func New(store repository.Store, locker lock.Locker, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Service{
		store:    store,
		uow:      uow.NewUoW(store, locker),
		cache:    deps.Cache,
		limiter:  deps.Limiter,
		notifier: deps.Notifier,
		log:      log,
	}
}

// MakeBooking reserves seats on a flight for a user.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: ID of the user booking the seats.
//   - flightID: ID of the flight.
//   - seats: seat codes such as "23J".
//   - rlKey: rate limit key; empty disables rate limiting.
//
// Returns:
//   - *domain.FlightBooking: the created booking.
//   - error: reservation.ErrEmptyRequest if no seats were requested.
//   - error: reservation.ErrInvalidSeat if a seat does not exist on the aircraft.
//   - error: reservation.ErrSeatUnavailable if a seat is taken or repeated.
//   - error: reservation.ErrFlightNotFound if the flight does not exist.
//   - error: reservation.ErrLockTimeout if the flight stayed locked too long.
//   - error: reservation.ErrRateLimited if the user is over the limit.
func (s *Service) MakeBooking(
	ctx context.Context,
	userID, flightID int64,
	seats []string,
	rlKey string,
) (*domain.FlightBooking, error) {
	const op = "service.reservation.MakeBooking"

	if len(seats) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrEmptyRequest)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	var booking *domain.FlightBooking

	err := s.uow.Do(ctx, flightID, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		f, err := tx.LockFlight(ctx, flightID)
		if err != nil {
			return translateRepoErr(err)
		}

		b, err := f.MakeBooking(userID, seats...)
		if err != nil {
			return err
		}

		if err := tx.InsertBooking(ctx, b); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSeatUnavailable
			}
			return translateRepoErr(err)
		}

		booking = b

		after(func(ctx context.Context) {
			s.invalidate(ctx, flightID)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race at commit time.
			return nil, fmt.Errorf("%s:%w", op, ErrSeatUnavailable)
		}
		return nil, fmt.Errorf("%s:%w", op, translateLockErr(err))
	}

	s.log.Info("booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.Int64("flight_id", flightID),
		slog.Int64("user_id", userID),
		slog.Any("seats", booking.Seats),
		slog.Int64("total_cost", booking.TotalCost),
	)

	return booking, nil
}

// CancelBooking removes a booking owned by userID and frees its seats.
// After the change is committed the notifier is told exactly once; a
// notification failure is logged and does not undo the cancellation.
//
// Returns:
//   - *domain.FlightBooking: the removed booking.
//   - error: reservation.ErrBookingNotFound if the booking does not exist or
//     belongs to another user.
//   - error: reservation.ErrLockTimeout if the flight stayed locked too long.
func (s *Service) CancelBooking(ctx context.Context, userID int64, bookingID uuid.UUID) (*domain.FlightBooking, error) {
	const op = "service.reservation.CancelBooking"

	existing, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if existing.UserID != userID {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	flightID := existing.FlightID
	var removed *domain.FlightBooking

	err = s.uow.Do(ctx, flightID, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		f, err := tx.LockFlight(ctx, flightID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return translateRepoErr(err)
		}

		// Re-read under the lock: the booking may have gone meanwhile.
		b, err := f.CancelBooking(bookingID, userID)
		if err != nil {
			return err
		}

		if err := tx.DeleteBooking(ctx, bookingID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return translateRepoErr(err)
		}

		removed = b

		after(func(ctx context.Context) {
			s.invalidate(ctx, flightID)
			s.notify(ctx, flightID)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, translateLockErr(err))
	}

	s.log.Info("booking cancelled",
		slog.String("booking_id", bookingID.String()),
		slog.Int64("flight_id", flightID),
		slog.Int64("user_id", userID),
	)

	return removed, nil
}

func (s *Service) invalidate(ctx context.Context, flightID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlight(ctx, flightID); err != nil {
		s.log.Warn("cache invalidation failed",
			slog.Int64("flight_id", flightID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) notify(ctx context.Context, flightID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, flightID); err != nil {
		s.log.Warn("flight notification failed",
			slog.Int64("flight_id", flightID),
			slog.String("error", err.Error()),
		)
	}
}

func translateRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrFlightNotFound
	case errors.Is(err, repository.ErrLockTimeout):
		return ErrLockTimeout
	default:
		return err
	}
}

func translateLockErr(err error) error {
	if errors.Is(err, lock.ErrTimeout) || errors.Is(err, repository.ErrLockTimeout) {
		return ErrLockTimeout
	}
	return err
}
