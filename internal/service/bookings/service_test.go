package bookings_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
	"github.com/kirinyoku/skyseat/internal/service/bookings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReader struct{ mock.Mock }

func (m *mockReader) GetBooking(ctx context.Context, id uuid.UUID) (*domain.FlightBooking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*domain.FlightBooking)
	return b, args.Error(1)
}

func (m *mockReader) ListBookingsByUser(ctx context.Context, userID int64) ([]*domain.FlightBooking, error) {
	args := m.Called(ctx, userID)
	b, _ := args.Get(0).([]*domain.FlightBooking)
	return b, args.Error(1)
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	r := &mockReader{}
	svc := bookings.New(r)

	owned := &domain.FlightBooking{ID: uuid.New(), FlightID: 1, UserID: 7, Seats: []string{"1A"}, CreatedAt: time.Now()}
	missing := uuid.New()

	r.On("GetBooking", ctx, owned.ID).Return(owned, nil)
	r.On("GetBooking", ctx, missing).Return(nil, repository.ErrNotFound)

	got, err := svc.Get(ctx, 7, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, owned, got)

	_, err = svc.Get(ctx, 8, owned.ID)
	assert.ErrorIs(t, err, bookings.ErrBookingNotFound)

	_, err = svc.Get(ctx, 7, missing)
	assert.ErrorIs(t, err, bookings.ErrBookingNotFound)

	r.AssertExpectations(t)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	r := &mockReader{}
	svc := bookings.New(r)

	list := []*domain.FlightBooking{{ID: uuid.New(), UserID: 7}}
	r.On("ListBookingsByUser", ctx, int64(7)).Return(list, nil)

	got, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, list, got)
}
