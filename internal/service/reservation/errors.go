package reservation

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/skyseat/internal/domain"
)

// The seat and booking errors are the domain's own values, so callers can
// also errors.As into *domain.SeatError for the offending seat.
var (
	ErrEmptyRequest    = domain.ErrEmptyRequest
	ErrInvalidSeat     = domain.ErrInvalidSeat
	ErrSeatUnavailable = domain.ErrSeatUnavailable
	ErrBookingNotFound = domain.ErrBookingNotFound

	ErrFlightNotFound = errors.New("flight not found")
	ErrLockTimeout    = errors.New("flight is busy, try again")
	ErrRateLimited    = errors.New("rate limited")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
