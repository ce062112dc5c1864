package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get retrieves a booking by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the booking is not found.
func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.FlightBooking, error) {
	const op = "postgres.BookingRepo.Get"

	out, err := queryBookings(ctx, r.handle(), `WHERE b.id = $1`, id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return out[0], nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.FlightBooking, error) {
	const op = "postgres.BookingRepo.ListByUser"

	out, err := queryBookings(ctx, r.handle(), `WHERE b.user_id = $1`, userID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Insert stores a booking and one booked_seats row per seat.
//
// Returns:
//   - error: repository.ErrConflict if a seat is already held on the flight.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.FlightBooking) error {
	const op = "postgres.BookingRepo.Insert"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO bookings(id, flight_id, user_id, total_cost, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.FlightID, b.UserID, b.TotalCost, b.CreatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, s := range b.Seats {
		batch.Queue(
			`INSERT INTO booked_seats(flight_id, seat_code, booking_id)
			 VALUES ($1, $2, $3)`,
			b.FlightID, s, b.ID,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.BookingRepo.Delete"

	ct, err := r.handle().Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func queryBookings(ctx context.Context, db DB, where string, args ...any) ([]*domain.FlightBooking, error) {
	rows, err := db.Query(ctx,
		`SELECT b.id, b.flight_id, b.user_id, b.total_cost, b.created_at,
		        array_agg(s.seat_code ORDER BY s.seat_code)
		   FROM bookings b
		   JOIN booked_seats s ON s.booking_id = b.id
		 `+where+`
		  GROUP BY b.id
		  ORDER BY b.created_at, b.id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.FlightBooking
	for rows.Next() {
		var b domain.FlightBooking
		if err := rows.Scan(&b.ID, &b.FlightID, &b.UserID, &b.TotalCost, &b.CreatedAt, &b.Seats); err != nil {
			return nil, err
		}
		domain.SortSeats(b.Seats)
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
