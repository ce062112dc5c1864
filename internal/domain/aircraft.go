package domain

import (
	"fmt"
	"strings"
)

// SeatingZone is a contiguous block of rows on an aircraft type sharing one
// price. Its seats are exactly Rows x Letters.
type SeatingZone struct {
	Name      string
	FirstRow  int
	LastRow   int
	Letters   string
	UnitPrice int64
}

func (z SeatingZone) Contains(s Seat) bool {
	return s.Row >= z.FirstRow &&
		s.Row <= z.LastRow &&
		strings.IndexByte(z.Letters, s.Letter) >= 0
}

func (z SeatingZone) SeatCount() int {
	return (z.LastRow - z.FirstRow + 1) * len(z.Letters)
}

// AircraftType is the seating chart shared by every flight flown on it. It is
// immutable once built by NewAircraftType and safe for concurrent reads.
type AircraftType struct {
	ID    int64
	Name  string
	Zones []SeatingZone
}

// NewAircraftType validates zones and builds an AircraftType. Zones must
// have a non-empty row range, at least one distinct upper-case letter, a
// non-negative price, and must not share rows.
func NewAircraftType(id int64, name string, zones []SeatingZone) (*AircraftType, error) {
	const op = "domain.NewAircraftType"

	if len(zones) == 0 {
		return nil, fmt.Errorf("%s: %q has no seating zones", op, name)
	}

	cp := make([]SeatingZone, len(zones))
	copy(cp, zones)

	for i, z := range cp {
		if z.FirstRow <= 0 || z.LastRow < z.FirstRow {
			return nil, fmt.Errorf("%s: zone %q has invalid rows %d-%d", op, z.Name, z.FirstRow, z.LastRow)
		}
		if z.UnitPrice < 0 {
			return nil, fmt.Errorf("%s: zone %q has negative price", op, z.Name)
		}

		letters := strings.ToUpper(z.Letters)
		if letters == "" {
			return nil, fmt.Errorf("%s: zone %q has no seat letters", op, z.Name)
		}
		for k := 0; k < len(letters); k++ {
			c := letters[k]
			if c < 'A' || c > 'Z' || strings.IndexByte(letters[k+1:], c) >= 0 {
				return nil, fmt.Errorf("%s: zone %q has invalid letters %q", op, z.Name, z.Letters)
			}
		}
		cp[i].Letters = letters

		for _, prev := range cp[:i] {
			if z.FirstRow <= prev.LastRow && prev.FirstRow <= z.LastRow {
				return nil, fmt.Errorf("%s: zones %q and %q overlap", op, prev.Name, z.Name)
			}
		}
	}

	return &AircraftType{
		ID:    id,
		Name:  name,
		Zones: cp,
	}, nil
}

func (a *AircraftType) IsValidSeat(code string) bool {
	_, ok := a.ZoneOf(code)
	return ok
}

// ZoneOf returns the zone holding code. Codes that are malformed or lie
// outside every zone are reported the same way.
func (a *AircraftType) ZoneOf(code string) (SeatingZone, bool) {
	s, ok := ParseSeat(code)
	if !ok {
		return SeatingZone{}, false
	}

	for _, z := range a.Zones {
		if z.Contains(s) {
			return z, true
		}
	}

	return SeatingZone{}, false
}

func (a *AircraftType) TotalSeats() int {
	n := 0
	for _, z := range a.Zones {
		n += z.SeatCount()
	}
	return n
}
