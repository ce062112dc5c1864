package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirinyoku/skyseat/internal/catalog"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
)

type Cache interface {
	InvalidateFlight(ctx context.Context, flightID int64) error
}

type Service struct {
	store repository.Store
	cache Cache
	log   *slog.Logger
}

// New builds the admin service; cache may be nil.
func New(store repository.Store, cache Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Service{
		store: store,
		cache: cache,
		log:   log,
	}
}

// ImportYAML parses a catalog document and imports it.
//
// Returns:
//   - *domain.Catalog: the imported catalog.
//   - error: admin.ErrInvalidCatalog if the document does not parse or
//     references unknown airports or aircraft.
//   - error: admin.ErrCatalogConflict if existing bookings no longer fit a
//     changed seating chart.
func (s *Service) ImportYAML(ctx context.Context, r io.Reader) (*domain.Catalog, error) {
	const op = "service.admin.ImportYAML"

	c, err := catalog.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %v:%w", op, err, ErrInvalidCatalog)
	}

	if err := s.ImportCatalog(ctx, c); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

// ImportCatalog upserts the catalog into the store and drops cached
// booking info of every imported flight.
func (s *Service) ImportCatalog(ctx context.Context, c *domain.Catalog) error {
	const op = "service.admin.ImportCatalog"

	if err := s.store.ImportCatalog(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%s: %v:%w", op, err, ErrCatalogConflict)
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s: %v:%w", op, err, ErrInvalidCatalog)
		default:
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	if s.cache != nil {
		for _, f := range c.Flights {
			if err := s.cache.InvalidateFlight(ctx, f.ID); err != nil {
				s.log.Warn("cache invalidation failed",
					slog.Int64("flight_id", f.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.log.Info("catalog imported",
		slog.Int("airports", len(c.Airports)),
		slog.Int("aircraft_types", len(c.AircraftTypes)),
		slog.Int("flights", len(c.Flights)),
	)

	return nil
}
