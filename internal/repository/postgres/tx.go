package postgres

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
)

type storeTx struct {
	flights  *FlightRepo
	bookings *BookingRepo
}

func (t *storeTx) LockFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	return t.flights.get(ctx, id, true)
}

func (t *storeTx) InsertBooking(ctx context.Context, b *domain.FlightBooking) error {
	return t.bookings.Insert(ctx, b)
}

func (t *storeTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	return t.bookings.Delete(ctx, id)
}

func (s *Store) GetFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.Flights().Get(ctx, id)
}

func (s *Store) SearchFlights(ctx context.Context, q repository.SearchQuery) ([]*domain.Flight, error) {
	return s.Flights().Search(ctx, q)
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*domain.FlightBooking, error) {
	return s.Bookings().Get(ctx, id)
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID int64) ([]*domain.FlightBooking, error) {
	return s.Bookings().ListByUser(ctx, userID)
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	return s.Users().Create(ctx, u)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.Users().ByUsername(ctx, username)
}

func (s *Store) UserByAuthToken(ctx context.Context, token string) (*domain.User, error) {
	return s.Users().ByAuthToken(ctx, token)
}

func (s *Store) SetAuthToken(ctx context.Context, userID int64, token string) error {
	return s.Users().SetAuthToken(ctx, userID, token)
}

// ImportCatalog applies c and re-checks the bookings of every flight the
// import touches. Flights on a re-imported aircraft type are locked first
// so the check serialises with in-flight reservations.
func (s *Store) ImportCatalog(ctx context.Context, c *domain.Catalog) error {
	flightIDs, typeIDs := catalogIDs(c)

	return s.runTx(ctx, nil, func(ctx context.Context, tx DB) error {
		flights := s.Flights().With(tx)

		locked, err := flights.LockAffected(ctx, flightIDs, typeIDs)
		if err != nil {
			return err
		}

		if err := s.Admin().With(tx).ImportCatalog(ctx, c); err != nil {
			return err
		}

		for _, id := range mergeIDs(locked, flightIDs) {
			if _, err := flights.Get(ctx, id); err != nil {
				return err
			}
		}

		return nil
	})
}

func catalogIDs(c *domain.Catalog) (flightIDs, typeIDs []int64) {
	flightIDs = make([]int64, 0, len(c.Flights))
	for _, f := range c.Flights {
		flightIDs = append(flightIDs, f.ID)
	}

	typeIDs = make([]int64, 0, len(c.AircraftTypes))
	for _, a := range c.AircraftTypes {
		typeIDs = append(typeIDs, a.ID)
	}

	return flightIDs, typeIDs
}

// mergeIDs returns the sorted union of a and b.
func mergeIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, ids := range [][]int64{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	slices.Sort(out)

	return out
}
