package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirinyoku/skyseat/internal/config"
	"github.com/kirinyoku/skyseat/internal/kafka"
	"github.com/kirinyoku/skyseat/internal/service/query"
	"github.com/kirinyoku/skyseat/internal/subscription"
)

// RunNotifier consumes flight events from Kafka and reports the seats each
// flight has left. It stops when ctx is canceled or on SIGTERM.
func RunNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	const op = "app.RunNotifier"

	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("%s: KAFKA_BROKERS is not set", op)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	defer closeStore()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if cat != nil {
		if err := store.ImportCatalog(ctx, cat); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
	defer consumer.Close()

	logger.Info("notifier consuming", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID)

	handler := newEventHandler(query.New(store, nil, query.Config{}), logger)
	if err := consumer.Consume(ctx, handler); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// newEventHandler logs the remaining seats of every changed flight. Flights
// the store no longer knows are skipped.
func newEventHandler(seats subscription.SeatCounter, logger *slog.Logger) func(context.Context, kafka.FlightEvent) error {
	return func(ctx context.Context, ev kafka.FlightEvent) error {
		free, err := seats.SeatsRemaining(ctx, ev.FlightID)
		if err != nil {
			if errors.Is(err, query.ErrFlightNotFound) {
				logger.Warn("event for unknown flight", "flight_id", ev.FlightID)
				return nil
			}
			return err
		}

		logger.Info("seats freed",
			slog.Int64("flight_id", ev.FlightID),
			slog.Int("seats_remaining", free),
			slog.Time("occurred_at", ev.OccurredAt),
		)
		return nil
	}
}
