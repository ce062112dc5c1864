package domain_test

import (
	"testing"

	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAircraft has rows 1-10 ABCDEF at 2500 and rows 11-60 A-K (no I) at 675.
func testAircraft(t *testing.T) *domain.AircraftType {
	t.Helper()

	a, err := domain.NewAircraftType(1, "A350", []domain.SeatingZone{
		{Name: "business", FirstRow: 1, LastRow: 10, Letters: "abcdef", UnitPrice: 2500},
		{Name: "economy", FirstRow: 11, LastRow: 60, Letters: "ABCDEFGHJK", UnitPrice: 675},
	})
	require.NoError(t, err)
	return a
}

func TestAircraftType_Seats(t *testing.T) {
	a := testAircraft(t)

	assert.Equal(t, 10*6+50*10, a.TotalSeats())
	assert.True(t, a.IsValidSeat("1a"))
	assert.True(t, a.IsValidSeat("60K"))
	assert.False(t, a.IsValidSeat("5K"), "letter outside the business zone")
	assert.False(t, a.IsValidSeat("500F"))
	assert.False(t, a.IsValidSeat("23I"))
	assert.False(t, a.IsValidSeat("FooBar"))

	z, ok := a.ZoneOf("23J")
	require.True(t, ok)
	assert.Equal(t, "economy", z.Name)
	assert.EqualValues(t, 675, z.UnitPrice)
}

func TestNewAircraftType_Invalid(t *testing.T) {
	tests := map[string][]domain.SeatingZone{
		"no zones":       nil,
		"bad rows":       {{Name: "x", FirstRow: 5, LastRow: 4, Letters: "A"}},
		"zero row":       {{Name: "x", FirstRow: 0, LastRow: 4, Letters: "A"}},
		"no letters":     {{Name: "x", FirstRow: 1, LastRow: 4}},
		"dup letters":    {{Name: "x", FirstRow: 1, LastRow: 4, Letters: "ABa"}},
		"bad letter":     {{Name: "x", FirstRow: 1, LastRow: 4, Letters: "A1"}},
		"negative price": {{Name: "x", FirstRow: 1, LastRow: 4, Letters: "A", UnitPrice: -1}},
		"overlap": {
			{Name: "x", FirstRow: 1, LastRow: 4, Letters: "A"},
			{Name: "y", FirstRow: 4, LastRow: 8, Letters: "A"},
		},
	}

	for name, zones := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := domain.NewAircraftType(1, "bad", zones)
			assert.Error(t, err)
		})
	}
}

func TestPrice(t *testing.T) {
	a := testAircraft(t)

	total, err := domain.Price(a, []string{"11A", "11B", "11C", "11D", "11E"})
	require.NoError(t, err)
	assert.EqualValues(t, 3375, total)

	total, err = domain.Price(a, []string{"1A", "23J"})
	require.NoError(t, err)
	assert.EqualValues(t, 3175, total)

	_, err = domain.Price(a, []string{"1A", "99Z"})
	var se *domain.SeatError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "99Z", se.Seat)
	assert.ErrorIs(t, err, domain.ErrInvalidSeat)
}
