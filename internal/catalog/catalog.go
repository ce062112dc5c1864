// Package catalog reads the static flight catalog (airports, aircraft types
// and flights) from YAML.
package catalog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kirinyoku/skyseat/internal/domain"
	"gopkg.in/yaml.v3"
)

type file struct {
	Airports []airport  `yaml:"airports"`
	Aircraft []aircraft `yaml:"aircraft"`
	Flights  []flight   `yaml:"flights"`
}

type airport struct {
	ID       int64  `yaml:"id"`
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	TimeZone string `yaml:"timezone"`
}

type aircraft struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Zones []zone `yaml:"zones"`
}

type zone struct {
	Name    string `yaml:"name"`
	Rows    [2]int `yaml:"rows"`
	Letters string `yaml:"letters"`
	Price   int64  `yaml:"price"`
}

type flight struct {
	ID          int64     `yaml:"id"`
	Name        string    `yaml:"name"`
	Origin      string    `yaml:"origin"`
	Destination string    `yaml:"destination"`
	Aircraft    int64     `yaml:"aircraft"`
	Departure   time.Time `yaml:"departure"`
}

func Load(path string) (*domain.Catalog, error) {
	const op = "catalog.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %s:%w", op, path, err)
	}

	return c, nil
}

// Parse decodes and validates a catalog. Flights may only reference airports
// and aircraft types declared in the same document.
func Parse(r io.Reader) (*domain.Catalog, error) {
	const op = "catalog.Parse"

	var raw file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	c := &domain.Catalog{}

	codes := make(map[string]bool, len(raw.Airports))
	for _, a := range raw.Airports {
		if a.Code == "" {
			return nil, fmt.Errorf("%s: airport %d has no code", op, a.ID)
		}
		if codes[a.Code] {
			return nil, fmt.Errorf("%s: duplicate airport %q", op, a.Code)
		}
		tz := a.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("%s: airport %q:%w", op, a.Code, err)
		}
		codes[a.Code] = true
		c.Airports = append(c.Airports, domain.Airport{ID: a.ID, Code: a.Code, Name: a.Name, TimeZone: tz})
	}

	types := make(map[int64]bool, len(raw.Aircraft))
	for _, a := range raw.Aircraft {
		zones := make([]domain.SeatingZone, 0, len(a.Zones))
		for _, z := range a.Zones {
			zones = append(zones, domain.SeatingZone{
				Name:      z.Name,
				FirstRow:  z.Rows[0],
				LastRow:   z.Rows[1],
				Letters:   z.Letters,
				UnitPrice: z.Price,
			})
		}

		at, err := domain.NewAircraftType(a.ID, a.Name, zones)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		types[a.ID] = true
		c.AircraftTypes = append(c.AircraftTypes, at)
	}

	for _, f := range raw.Flights {
		if !codes[f.Origin] || !codes[f.Destination] {
			return nil, fmt.Errorf("%s: flight %q references unknown airport", op, f.Name)
		}
		if !types[f.Aircraft] {
			return nil, fmt.Errorf("%s: flight %q references unknown aircraft %d", op, f.Name, f.Aircraft)
		}
		c.Flights = append(c.Flights, domain.CatalogFlight{
			ID:             f.ID,
			Name:           f.Name,
			Origin:         f.Origin,
			Destination:    f.Destination,
			AircraftTypeID: f.Aircraft,
			DepartureTime:  f.Departure,
		})
	}

	return c, nil
}
