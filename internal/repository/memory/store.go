package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
)

// Store keeps the whole catalog, bookings and users in process memory. Reads
// return copies; writes go through RunTx and are applied atomically at
// commit.
type Store struct {
	mu sync.RWMutex

	airports map[string]domain.Airport
	aircraft map[int64]*domain.AircraftType
	flights  map[int64]*domain.Flight
	bookings map[uuid.UUID]int64

	users    map[int64]*domain.User
	byName   map[string]int64
	byToken  map[string]int64
	nextUser int64
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		airports: make(map[string]domain.Airport),
		aircraft: make(map[int64]*domain.AircraftType),
		flights:  make(map[int64]*domain.Flight),
		bookings: make(map[uuid.UUID]int64),
		users:    make(map[int64]*domain.User),
		byName:   make(map[string]int64),
		byToken:  make(map[string]int64),
	}
}

func (s *Store) GetFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	const op = "memory.Store.GetFlight"

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flights[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return f.Clone(), nil
}

func (s *Store) SearchFlights(ctx context.Context, q repository.SearchQuery) ([]*domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Flight, 0)
	for _, f := range s.flights {
		if !matchAirport(f.Origin, q.Origin) || !matchAirport(f.Destination, q.Destination) {
			continue
		}
		if !q.DepartFrom.IsZero() && f.DepartureTime.Before(q.DepartFrom) {
			continue
		}
		if !q.DepartTo.IsZero() && !f.DepartureTime.Before(q.DepartTo) {
			continue
		}
		out = append(out, f.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureTime.Equal(out[j].DepartureTime) {
			return out[i].DepartureTime.Before(out[j].DepartureTime)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func matchAirport(a domain.Airport, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Name), term) ||
		strings.Contains(strings.ToLower(a.Code), term)
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*domain.FlightBooking, error) {
	const op = "memory.Store.GetBooking"

	s.mu.RLock()
	defer s.mu.RUnlock()

	fid, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	for _, b := range s.flights[fid].Bookings() {
		if b.ID == id {
			return b, nil
		}
	}

	return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID int64) ([]*domain.FlightBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.FlightBooking, 0)
	for _, f := range s.flights {
		for _, b := range f.Bookings() {
			if b.UserID == userID {
				out = append(out, b)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	const op = "memory.Store.CreateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[u.Username]; ok {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	s.nextUser++
	cp := *u
	cp.ID = s.nextUser
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	s.users[cp.ID] = &cp
	s.byName[cp.Username] = cp.ID
	if cp.AuthToken != "" {
		s.byToken[cp.AuthToken] = cp.ID
	}

	return cp.ID, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const op = "memory.Store.UserByUsername"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) UserByAuthToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "memory.Store.UserByAuthToken"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok || token == "" {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	cp := *s.users[id]
	return &cp, nil
}

// SetAuthToken replaces the user's token. An empty token logs the user out.
func (s *Store) SetAuthToken(ctx context.Context, userID int64, token string) error {
	const op = "memory.Store.SetAuthToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	if u.AuthToken != "" {
		delete(s.byToken, u.AuthToken)
	}
	u.AuthToken = token
	if token != "" {
		s.byToken[token] = userID
	}

	return nil
}

// ImportCatalog upserts airports, aircraft types and flights. Bookings of
// flights that already exist are carried over and must still fit the new
// seating chart.
func (s *Store) ImportCatalog(ctx context.Context, c *domain.Catalog) error {
	const op = "memory.Store.ImportCatalog"

	s.mu.Lock()
	defer s.mu.Unlock()

	airports := make(map[string]domain.Airport, len(s.airports)+len(c.Airports))
	for k, v := range s.airports {
		airports[k] = v
	}
	for _, a := range c.Airports {
		airports[a.Code] = a
	}

	aircraft := make(map[int64]*domain.AircraftType, len(s.aircraft)+len(c.AircraftTypes))
	for k, v := range s.aircraft {
		aircraft[k] = v
	}
	imported := make(map[int64]*domain.AircraftType, len(c.AircraftTypes))
	for _, a := range c.AircraftTypes {
		aircraft[a.ID] = a
		imported[a.ID] = a
	}

	flights := make(map[int64]*domain.Flight, len(c.Flights))
	for _, cf := range c.Flights {
		origin, ok := airports[cf.Origin]
		if !ok {
			return fmt.Errorf("%s: flight %d origin %q:%w", op, cf.ID, cf.Origin, repository.ErrNotFound)
		}
		dest, ok := airports[cf.Destination]
		if !ok {
			return fmt.Errorf("%s: flight %d destination %q:%w", op, cf.ID, cf.Destination, repository.ErrNotFound)
		}
		at, ok := aircraft[cf.AircraftTypeID]
		if !ok {
			return fmt.Errorf("%s: flight %d aircraft %d:%w", op, cf.ID, cf.AircraftTypeID, repository.ErrNotFound)
		}

		f := &domain.Flight{
			ID:            cf.ID,
			Name:          cf.Name,
			Origin:        origin,
			Destination:   dest,
			DepartureTime: cf.DepartureTime,
			Aircraft:      at,
		}
		if old, ok := s.flights[cf.ID]; ok {
			if err := carryBookings(old, f); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}
		flights[cf.ID] = f
	}

	// Flights left out of the catalog still fly a re-imported type and
	// move to its new chart.
	for id, old := range s.flights {
		if _, ok := flights[id]; ok || old.Aircraft == nil {
			continue
		}
		at, ok := imported[old.Aircraft.ID]
		if !ok {
			continue
		}

		f := &domain.Flight{
			ID:            old.ID,
			Name:          old.Name,
			Origin:        old.Origin,
			Destination:   old.Destination,
			DepartureTime: old.DepartureTime,
			Aircraft:      at,
		}
		if err := carryBookings(old, f); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		flights[id] = f
	}

	s.airports = airports
	s.aircraft = aircraft
	for id, f := range flights {
		s.flights[id] = f
	}

	return nil
}

// carryBookings re-attaches the bookings of old to its replacement f. A
// booking on a seat the new chart lacks is a conflict.
func carryBookings(old, f *domain.Flight) error {
	for _, b := range old.Bookings() {
		if err := f.AttachBooking(b); err != nil {
			return fmt.Errorf("flight %d: %v:%w", f.ID, err, repository.ErrConflict)
		}
	}
	return nil
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	const op = "memory.Store.RunTx"

	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := s.commit(tx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// commit applies the buffered writes to copies of the touched flights and
// swaps them in only when every write fits.
func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[int64]*domain.Flight)
	flight := func(id int64) (*domain.Flight, error) {
		if f, ok := touched[id]; ok {
			return f, nil
		}
		f, ok := s.flights[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		touched[id] = f.Clone()
		return touched[id], nil
	}

	for _, id := range tx.deletes {
		fid, ok := s.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		f, err := flight(fid)
		if err != nil {
			return err
		}
		f.DetachBooking(id)
	}

	for _, b := range tx.inserts {
		f, err := flight(b.FlightID)
		if err != nil {
			return err
		}
		if err := f.AttachBooking(b); err != nil {
			return fmt.Errorf("%v:%w", err, repository.ErrConflict)
		}
	}

	for id, f := range touched {
		s.flights[id] = f
	}
	for _, id := range tx.deletes {
		delete(s.bookings, id)
	}
	for _, b := range tx.inserts {
		s.bookings[b.ID] = b.FlightID
	}

	return nil
}

type memTx struct {
	s       *Store
	inserts []*domain.FlightBooking
	deletes []uuid.UUID
}

func (t *memTx) LockFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	return t.s.GetFlight(ctx, id)
}

func (t *memTx) InsertBooking(ctx context.Context, b *domain.FlightBooking) error {
	t.inserts = append(t.inserts, b.Clone())
	return nil
}

func (t *memTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	t.deletes = append(t.deletes, id)
	return nil
}
