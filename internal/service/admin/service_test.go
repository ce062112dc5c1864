package admin_test

import (
	"context"
	"strings"
	"testing"

	"github.com/kirinyoku/skyseat/internal/repository/memory"
	"github.com/kirinyoku/skyseat/internal/service/admin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct{ mock.Mock }

func (m *mockCache) InvalidateFlight(ctx context.Context, flightID int64) error {
	return m.Called(ctx, flightID).Error(0)
}

const doc = `
airports:
  - {id: 1, code: WLG, name: Wellington, timezone: Pacific/Auckland}
  - {id: 2, code: CHC, name: Christchurch, timezone: Pacific/Auckland}
aircraft:
  - id: 1
    name: ATR 72
    zones:
      - {name: economy, rows: [1, 18], letters: ACDF, price: 120}
flights:
  - {id: 5, name: NZ5031, origin: WLG, destination: CHC, aircraft: 1, departure: 2026-12-01T08:00:00+13:00}
`

func TestImportYAML(t *testing.T) {
	store := memory.NewStore()
	cache := &mockCache{}
	cache.On("InvalidateFlight", mock.Anything, int64(5)).Return(nil).Once()

	svc := admin.New(store, cache, nil)

	c, err := svc.ImportYAML(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, c.Flights, 1)

	f, err := store.GetFlight(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 72, f.SeatsRemaining())
	assert.Equal(t, "Christchurch", f.Destination.Name)
	cache.AssertExpectations(t)
}

func TestImportYAML_Invalid(t *testing.T) {
	svc := admin.New(memory.NewStore(), nil, nil)

	_, err := svc.ImportYAML(context.Background(), strings.NewReader("flights: [{id: 1, origin: X}]"))
	assert.ErrorIs(t, err, admin.ErrInvalidCatalog)
}
