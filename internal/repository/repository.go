package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
)

// SearchQuery selects flights by origin and destination. Origin and
// Destination match airport names or codes case-insensitively as substrings.
type SearchQuery struct {
	Origin      string
	Destination string
	// DepartFrom and DepartTo bound the departure time when non-zero.
	DepartFrom time.Time
	DepartTo   time.Time
}

type FlightReader interface {
	// GetFlight loads a flight with its bookings.
	GetFlight(ctx context.Context, id int64) (*domain.Flight, error)
	// SearchFlights returns matching flights ordered by departure time.
	// Bookings are loaded as well.
	SearchFlights(ctx context.Context, q SearchQuery) ([]*domain.Flight, error)
}

type BookingReader interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.FlightBooking, error)
	ListBookingsByUser(ctx context.Context, userID int64) ([]*domain.FlightBooking, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) (int64, error)
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
	UserByAuthToken(ctx context.Context, token string) (*domain.User, error)
	SetAuthToken(ctx context.Context, userID int64, token string) error
}

// Tx is the write side of a store, valid only inside RunTx.
type Tx interface {
	// LockFlight loads a flight with its bookings for update.
	LockFlight(ctx context.Context, id int64) (*domain.Flight, error)
	InsertBooking(ctx context.Context, b *domain.FlightBooking) error
	DeleteBooking(ctx context.Context, id uuid.UUID) error
}

type Store interface {
	FlightReader
	BookingReader
	UserRepository

	// RunTx runs fn in a transaction that commits when fn returns nil.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ImportCatalog(ctx context.Context, c *domain.Catalog) error
}
