package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/skyseat/internal/domain"
)

type AdminRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AdminRepo) With(db DB) *AdminRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AdminRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// ImportCatalog upserts airports, aircraft types with their zones, and
// flights. Flights reference airports by code.
func (r *AdminRepo) ImportCatalog(ctx context.Context, c *domain.Catalog) error {
	const op = "postgres.AdminRepo.ImportCatalog"

	if err := r.UpsertAirports(ctx, c.Airports); err != nil {
		return wrapDBErr(op, err)
	}

	for _, a := range c.AircraftTypes {
		if err := r.UpsertAircraftType(ctx, a); err != nil {
			return wrapDBErr(op, err)
		}
	}

	if err := r.UpsertFlights(ctx, c.Flights); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *AdminRepo) UpsertAirports(ctx context.Context, airports []domain.Airport) error {
	if len(airports) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range airports {
		batch.Queue(
			`INSERT INTO airports(id, code, name, time_zone)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE
			   SET code = EXCLUDED.code, name = EXCLUDED.name, time_zone = EXCLUDED.time_zone`,
			a.ID, a.Code, a.Name, a.TimeZone,
		)
	}

	return r.handle().SendBatch(ctx, batch).Close()
}

// UpsertAircraftType replaces the seating zones of the type.
func (r *AdminRepo) UpsertAircraftType(ctx context.Context, a *domain.AircraftType) error {
	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO aircraft_types(id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		a.ID, a.Name,
	)
	batch.Queue(`DELETE FROM seating_zones WHERE aircraft_type_id = $1`, a.ID)
	for i, z := range a.Zones {
		batch.Queue(
			`INSERT INTO seating_zones(aircraft_type_id, position, name, first_row, last_row, letters, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, i, z.Name, z.FirstRow, z.LastRow, z.Letters, z.UnitPrice,
		)
	}

	return r.handle().SendBatch(ctx, batch).Close()
}

func (r *AdminRepo) UpsertFlights(ctx context.Context, flights []domain.CatalogFlight) error {
	if len(flights) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, f := range flights {
		batch.Queue(
			`INSERT INTO flights(id, name, origin_id, destination_id, aircraft_type_id, departure_time)
			 VALUES ($1, $2,
			         (SELECT id FROM airports WHERE code = $3),
			         (SELECT id FROM airports WHERE code = $4),
			         $5, $6)
			 ON CONFLICT (id) DO UPDATE
			   SET name = EXCLUDED.name,
			       origin_id = EXCLUDED.origin_id,
			       destination_id = EXCLUDED.destination_id,
			       aircraft_type_id = EXCLUDED.aircraft_type_id,
			       departure_time = EXCLUDED.departure_time`,
			f.ID, f.Name, f.Origin, f.Destination, f.AircraftTypeID, f.DepartureTime,
		)
	}

	return r.handle().SendBatch(ctx, batch).Close()
}
