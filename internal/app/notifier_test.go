package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/kirinyoku/skyseat/internal/kafka"
	"github.com/kirinyoku/skyseat/internal/service/query"
	"github.com/stretchr/testify/assert"
)

type seatCounterFunc func(ctx context.Context, flightID int64) (int, error)

func (f seatCounterFunc) SeatsRemaining(ctx context.Context, flightID int64) (int, error) {
	return f(ctx, flightID)
}

func TestEventHandler(t *testing.T) {
	boom := errors.New("boom")
	counter := seatCounterFunc(func(ctx context.Context, flightID int64) (int, error) {
		switch flightID {
		case 1:
			return 12, nil
		case 2:
			return 0, fmt.Errorf("wrapped:%w", query.ErrFlightNotFound)
		default:
			return 0, boom
		}
	})

	h := newEventHandler(counter, slog.New(slog.DiscardHandler))
	ev := func(id int64) kafka.FlightEvent {
		return kafka.FlightEvent{Type: kafka.EventFlightChanged, FlightID: id, OccurredAt: time.Now()}
	}

	assert.NoError(t, h(context.Background(), ev(1)))
	assert.NoError(t, h(context.Background(), ev(2)))
	assert.ErrorIs(t, h(context.Background(), ev(3)), boom)
}
