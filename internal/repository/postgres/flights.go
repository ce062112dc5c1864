package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
)

type FlightRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *FlightRepo) With(db DB) *FlightRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *FlightRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const selectFlights = `
SELECT f.id, f.name, f.departure_time, f.aircraft_type_id,
       o.id, o.code, o.name, o.time_zone,
       d.id, d.code, d.name, d.time_zone
  FROM flights f
  JOIN airports o ON o.id = f.origin_id
  JOIN airports d ON d.id = f.destination_id`

// Get retrieves a flight with its aircraft type and bookings.
//
// Returns:
//   - error: repository.ErrNotFound if the flight is not found.
func (r *FlightRepo) Get(ctx context.Context, id int64) (*domain.Flight, error) {
	return r.get(ctx, id, false)
}

func (r *FlightRepo) get(ctx context.Context, id int64, forUpdate bool) (*domain.Flight, error) {
	const op = "postgres.FlightRepo.Get"

	q := selectFlights + ` WHERE f.id = $1`
	if forUpdate {
		q += ` FOR UPDATE OF f`
	}

	flights, err := r.load(ctx, q, id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	if len(flights) == 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return flights[0], nil
}

// LockAffected row-locks every existing flight that is listed in
// flightIDs or flies one of typeIDs and returns their ids in ascending
// order. The fixed order keeps concurrent imports from deadlocking.
func (r *FlightRepo) LockAffected(ctx context.Context, flightIDs, typeIDs []int64) ([]int64, error) {
	const op = "postgres.FlightRepo.LockAffected"

	rows, err := r.handle().Query(ctx,
		`SELECT id FROM flights
		  WHERE id = ANY($1) OR aircraft_type_id = ANY($2)
		  ORDER BY id
		    FOR UPDATE`,
		flightIDs, typeIDs,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

// Search lists flights whose origin and destination match q, ordered by
// departure time.
func (r *FlightRepo) Search(ctx context.Context, q repository.SearchQuery) ([]*domain.Flight, error) {
	const op = "postgres.FlightRepo.Search"

	sql := selectFlights + `
 WHERE (o.name ILIKE $1 OR o.code ILIKE $1)
   AND (d.name ILIKE $2 OR d.code ILIKE $2)
   AND ($3::timestamptz IS NULL OR f.departure_time >= $3)
   AND ($4::timestamptz IS NULL OR f.departure_time < $4)
 ORDER BY f.departure_time, f.id`

	flights, err := r.load(ctx, sql,
		containsPattern(q.Origin),
		containsPattern(q.Destination),
		nullTime(q.DepartFrom),
		nullTime(q.DepartTo),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return flights, nil
}

func (r *FlightRepo) load(ctx context.Context, sql string, args ...any) ([]*domain.Flight, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	var (
		flights    []*domain.Flight
		aircraftOf = make(map[int64]int64)
	)
	for rows.Next() {
		var f domain.Flight
		var aircraftID int64
		if err := rows.Scan(
			&f.ID, &f.Name, &f.DepartureTime, &aircraftID,
			&f.Origin.ID, &f.Origin.Code, &f.Origin.Name, &f.Origin.TimeZone,
			&f.Destination.ID, &f.Destination.Code, &f.Destination.Name, &f.Destination.TimeZone,
		); err != nil {
			rows.Close()
			return nil, err
		}
		aircraftOf[f.ID] = aircraftID
		flights = append(flights, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(flights) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(aircraftOf))
	for _, a := range aircraftOf {
		ids = append(ids, a)
	}
	aircraft, err := loadAircraft(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Flight, len(flights))
	flightIDs := make([]int64, 0, len(flights))
	for _, f := range flights {
		f.Aircraft = aircraft[aircraftOf[f.ID]]
		byID[f.ID] = f
		flightIDs = append(flightIDs, f.ID)
	}

	bookings, err := queryBookings(ctx, db, `WHERE b.flight_id = ANY($1)`, flightIDs)
	if err != nil {
		return nil, err
	}
	for _, b := range bookings {
		if err := byID[b.FlightID].AttachBooking(b); err != nil {
			return nil, fmt.Errorf("%v:%w", err, repository.ErrConflict)
		}
	}

	return flights, nil
}

func loadAircraft(ctx context.Context, db DB, ids []int64) (map[int64]*domain.AircraftType, error) {
	rows, err := db.Query(ctx,
		`SELECT t.id, t.name, z.name, z.first_row, z.last_row, z.letters, z.unit_price
		   FROM aircraft_types t
		   JOIN seating_zones z ON z.aircraft_type_id = t.id
		  WHERE t.id = ANY($1)
		  ORDER BY t.id, z.position`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[int64]string)
	zones := make(map[int64][]domain.SeatingZone)
	for rows.Next() {
		var id int64
		var name string
		var z domain.SeatingZone
		if err := rows.Scan(&id, &name, &z.Name, &z.FirstRow, &z.LastRow, &z.Letters, &z.UnitPrice); err != nil {
			return nil, err
		}
		names[id] = name
		zones[id] = append(zones[id], z)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[int64]*domain.AircraftType, len(names))
	for id, name := range names {
		a, err := domain.NewAircraftType(id, name, zones[id])
		if err != nil {
			return nil, err
		}
		out[id] = a
	}

	return out, nil
}

// containsPattern turns a search term into an ILIKE substring pattern.
func containsPattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
