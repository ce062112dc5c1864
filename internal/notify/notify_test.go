package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/skyseat/internal/notify"
	"github.com/stretchr/testify/assert"
)

func TestMulti_CallsEveryNotifier(t *testing.T) {
	var got []int64
	record := notify.Func(func(ctx context.Context, flightID int64) error {
		got = append(got, flightID)
		return nil
	})
	boom := errors.New("boom")
	failing := notify.Func(func(ctx context.Context, flightID int64) error { return boom })

	err := notify.Multi{failing, nil, record}.Notify(context.Background(), 9)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int64{9}, got)
	assert.NoError(t, notify.Multi{}.Notify(context.Background(), 1))
}
