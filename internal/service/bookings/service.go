package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
)

var ErrBookingNotFound = domain.ErrBookingNotFound

type Service struct {
	store repository.BookingReader
}

func New(store repository.BookingReader) *Service {
	return &Service{store: store}
}

// Get retrieves a booking owned by userID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: ID of the requesting user.
//   - id: ID of the booking to retrieve.
//
// Returns:
//   - *domain.FlightBooking: the booking.
//   - error: bookings.ErrBookingNotFound if the booking does not exist or
//     belongs to someone else.
func (s *Service) Get(ctx context.Context, userID int64, id uuid.UUID) (*domain.FlightBooking, error) {
	const op = "service.bookings.Get"

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if b.UserID != userID {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	return b, nil
}

// List returns the bookings of userID, oldest first.
func (s *Service) List(ctx context.Context, userID int64) ([]*domain.FlightBooking, error) {
	const op = "service.bookings.List"

	out, err := s.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
