package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
	redisrepo "github.com/kirinyoku/skyseat/internal/repository/redis"
)

const dateLayout = "2006-01-02"

// Clock offsets range from UTC-12 to UTC+14, so this margin around a local
// date covers every time zone.
const zoneMargin = 15 * time.Hour

type Config struct {
	BookingInfoTTL time.Duration
}

type Service struct {
	store repository.FlightReader
	cache *redisrepo.Cache
	cfg   Config
}

// New builds the read-side service. cache may be nil, in which case every
// read goes to the store.
func New(store repository.FlightReader, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.BookingInfoTTL <= 0 {
		cfg.BookingInfoTTL = 30 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

type SearchParams struct {
	Origin        string
	Destination   string
	DepartureDate string
	DayRange      int
}

// SearchFlights lists flights between two airports ordered by departure.
// When DepartureDate is set, only flights leaving within DayRange days of
// that date, in the origin airport's time zone, are returned.
//
// Returns:
//   - error: query.ErrInvalidQuery if origin or destination is missing, the
//     date is not YYYY-MM-DD, or DayRange is negative.
func (s *Service) SearchFlights(ctx context.Context, p SearchParams) ([]*domain.Flight, error) {
	const op = "service.query.SearchFlights"

	if strings.TrimSpace(p.Origin) == "" || strings.TrimSpace(p.Destination) == "" {
		return nil, fmt.Errorf("%s: origin and destination are required:%w", op, ErrInvalidQuery)
	}
	if p.DayRange < 0 {
		return nil, fmt.Errorf("%s: negative day range:%w", op, ErrInvalidQuery)
	}

	q := repository.SearchQuery{
		Origin:      p.Origin,
		Destination: p.Destination,
	}

	var date time.Time
	if p.DepartureDate != "" {
		d, err := time.Parse(dateLayout, p.DepartureDate)
		if err != nil {
			return nil, fmt.Errorf("%s: bad departure date %q:%w", op, p.DepartureDate, ErrInvalidQuery)
		}
		date = d
		q.DepartFrom = d.AddDate(0, 0, -p.DayRange).Add(-zoneMargin)
		q.DepartTo = d.AddDate(0, 0, p.DayRange+1).Add(zoneMargin)
	}

	flights, err := s.store.SearchFlights(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if date.IsZero() {
		return flights, nil
	}

	out := flights[:0]
	for _, f := range flights {
		if departsWithin(f, date, p.DayRange) {
			out = append(out, f)
		}
	}

	return out, nil
}

// departsWithin reports whether f leaves between the start of date-days and
// the end of date+days, local to its origin airport.
func departsWithin(f *domain.Flight, date time.Time, days int) bool {
	loc := Location(f.Origin)
	y, m, d := date.Date()
	from := time.Date(y, m, d-days, 0, 0, 0, 0, loc)
	to := time.Date(y, m, d+days+1, 0, 0, 0, 0, loc)

	return !f.DepartureTime.Before(from) && f.DepartureTime.Before(to)
}

// Location returns the airport's time zone, falling back to UTC when it is
// unknown.
func Location(a domain.Airport) *time.Location {
	if a.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BookingInfo returns the occupancy of a flight, through the cache when one
// is configured.
//
// Returns:
//   - error: query.ErrFlightNotFound if the flight does not exist.
func (s *Service) BookingInfo(ctx context.Context, flightID int64) (*domain.BookingInfo, error) {
	const op = "service.query.BookingInfo"

	load := func(ctx context.Context) (domain.BookingInfo, error) {
		f, err := s.store.GetFlight(ctx, flightID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.BookingInfo{}, ErrFlightNotFound
			}
			return domain.BookingInfo{}, err
		}
		return f.BookingInfo(), nil
	}

	var (
		info domain.BookingInfo
		err  error
	)
	if s.cache != nil {
		info, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyFlightBookingInfo(flightID), s.cfg.BookingInfoTTL, load)
	} else {
		info, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &info, nil
}

// SeatsRemaining reads the current number of free seats, bypassing the
// cache.
func (s *Service) SeatsRemaining(ctx context.Context, flightID int64) (int, error) {
	const op = "service.query.SeatsRemaining"

	f, err := s.store.GetFlight(ctx, flightID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrFlightNotFound)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return f.SeatsRemaining(), nil
}
