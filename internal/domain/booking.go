package domain

import (
	"time"

	"github.com/google/uuid"
)

// FlightBooking is a set of seats held by one user on one flight. TotalCost
// is fixed when the booking is made.
type FlightBooking struct {
	ID        uuid.UUID
	FlightID  int64
	UserID    int64
	Seats     []string
	TotalCost int64
	CreatedAt time.Time
}

func (b *FlightBooking) Clone() *FlightBooking {
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	return &cp
}
