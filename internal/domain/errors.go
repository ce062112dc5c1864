package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRequest    = errors.New("no seats requested")
	ErrInvalidSeat     = errors.New("invalid seat")
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrBookingNotFound = errors.New("booking not found")
	ErrWrongFlight     = errors.New("booking belongs to another flight")
)

// SeatError reports the seat that made a reservation fail. Err is one of
// ErrInvalidSeat or ErrSeatUnavailable.
type SeatError struct {
	Seat string
	Err  error
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("%s: %q", e.Err, e.Seat)
}

func (e *SeatError) Unwrap() error {
	return e.Err
}
