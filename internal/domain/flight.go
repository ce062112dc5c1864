package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Flight is the aggregate that owns the bookings of one flight. It is not
// safe for concurrent use; callers serialise access per flight.
type Flight struct {
	ID            int64
	Name          string
	Origin        Airport
	Destination   Airport
	DepartureTime time.Time
	Aircraft      *AircraftType

	bookings map[uuid.UUID]*FlightBooking
	booked   map[string]uuid.UUID
}

func (f *Flight) ensure() {
	if f.bookings == nil {
		f.bookings = make(map[uuid.UUID]*FlightBooking)
		f.booked = make(map[string]uuid.UUID)
	}
}

// AttachBooking adds an existing booking, as read back from storage. It
// enforces the same invariants as MakeBooking but keeps the stored id, cost
// and creation time.
func (f *Flight) AttachBooking(b *FlightBooking) error {
	const op = "domain.Flight.AttachBooking"

	if b.FlightID != f.ID {
		return fmt.Errorf("%s:%w", op, ErrWrongFlight)
	}

	seats, err := f.validate(b.Seats)
	if err != nil {
		return fmt.Errorf("%s: booking %s:%w", op, b.ID, err)
	}
	if _, ok := f.bookings[b.ID]; ok {
		return fmt.Errorf("%s: duplicate booking %s", op, b.ID)
	}

	cp := b.Clone()
	cp.Seats = seats
	f.add(cp)

	return nil
}

// MakeBooking reserves seats for userID. On any error the flight is left
// exactly as it was.
func (f *Flight) MakeBooking(userID int64, seats ...string) (*FlightBooking, error) {
	canon, err := f.validate(seats)
	if err != nil {
		return nil, err
	}

	cost, err := Price(f.Aircraft, canon)
	if err != nil {
		return nil, err
	}

	b := &FlightBooking{
		ID:        uuid.New(),
		FlightID:  f.ID,
		UserID:    userID,
		Seats:     canon,
		TotalCost: cost,
		CreatedAt: time.Now().UTC(),
	}
	f.add(b)

	return b.Clone(), nil
}

// validate checks seats in order: empty request, invalid codes, then seats
// taken by other bookings or repeated within the request. It returns the
// canonical codes sorted for display.
func (f *Flight) validate(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, ErrEmptyRequest
	}

	canon := make([]string, 0, len(seats))
	for _, code := range seats {
		if f.Aircraft == nil || !f.Aircraft.IsValidSeat(code) {
			return nil, &SeatError{Seat: code, Err: ErrInvalidSeat}
		}
		c, _ := CanonicalSeat(code)
		canon = append(canon, c)
	}

	seen := make(map[string]struct{}, len(canon))
	for _, c := range canon {
		if _, ok := f.booked[c]; ok {
			return nil, &SeatError{Seat: c, Err: ErrSeatUnavailable}
		}
		if _, ok := seen[c]; ok {
			return nil, &SeatError{Seat: c, Err: ErrSeatUnavailable}
		}
		seen[c] = struct{}{}
	}

	SortSeats(canon)
	return canon, nil
}

func (f *Flight) add(b *FlightBooking) {
	f.ensure()
	f.bookings[b.ID] = b
	for _, s := range b.Seats {
		f.booked[s] = b.ID
	}
}

// Booking returns the booking with id if it belongs to userID. Bookings of
// other users are reported as ErrBookingNotFound.
func (f *Flight) Booking(id uuid.UUID, userID int64) (*FlightBooking, error) {
	b, ok := f.bookings[id]
	if !ok || b.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return b.Clone(), nil
}

// CancelBooking removes the booking owned by userID and frees its seats.
func (f *Flight) CancelBooking(id uuid.UUID, userID int64) (*FlightBooking, error) {
	b, ok := f.bookings[id]
	if !ok || b.UserID != userID {
		return nil, ErrBookingNotFound
	}

	f.DetachBooking(id)
	return b, nil
}

// DetachBooking removes a booking regardless of owner.
func (f *Flight) DetachBooking(id uuid.UUID) (*FlightBooking, bool) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, false
	}

	delete(f.bookings, id)
	for _, s := range b.Seats {
		delete(f.booked, s)
	}

	return b, true
}

// Bookings returns copies of all bookings, oldest first.
func (f *Flight) Bookings() []*FlightBooking {
	out := make([]*FlightBooking, 0, len(f.bookings))
	for _, b := range f.bookings {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (f *Flight) BookedSeats() []string {
	out := make([]string, 0, len(f.booked))
	for s := range f.booked {
		out = append(out, s)
	}
	SortSeats(out)
	return out
}

func (f *Flight) IsBooked(code string) bool {
	c, ok := CanonicalSeat(code)
	if !ok {
		return false
	}
	_, ok = f.booked[c]
	return ok
}

func (f *Flight) TotalSeats() int {
	if f.Aircraft == nil {
		return 0
	}
	return f.Aircraft.TotalSeats()
}

func (f *Flight) SeatsRemaining() int {
	return f.TotalSeats() - len(f.booked)
}

func (f *Flight) BookingInfo() BookingInfo {
	info := BookingInfo{
		FlightID:       f.ID,
		FlightName:     f.Name,
		TotalSeats:     f.TotalSeats(),
		SeatsRemaining: f.SeatsRemaining(),
		BookedSeats:    f.BookedSeats(),
	}
	if f.Aircraft != nil {
		info.AircraftType = f.Aircraft.Name
		info.Zones = append([]SeatingZone(nil), f.Aircraft.Zones...)
	}
	return info
}

// Clone returns a deep copy of the flight and its bookings. The aircraft
// type is shared since it is immutable.
func (f *Flight) Clone() *Flight {
	cp := &Flight{
		ID:            f.ID,
		Name:          f.Name,
		Origin:        f.Origin,
		Destination:   f.Destination,
		DepartureTime: f.DepartureTime,
		Aircraft:      f.Aircraft,
	}
	for _, b := range f.bookings {
		cp.add(b.Clone())
	}
	return cp
}
