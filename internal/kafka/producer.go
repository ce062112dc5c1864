package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const EventFlightChanged = "flight_changed"

// FlightEvent is published whenever a cancellation frees seats on a flight.
type FlightEvent struct {
	Type       string    `json:"type"`
	FlightID   int64     `json:"flight_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes FlightEvents keyed by flight id, so events of one
// flight stay ordered within a partition.
//
// Notify runs after a booking commits and must not hold up the request,
// so each write happens in the background with its own deadline. Close
// waits for writes still in flight.
type Producer struct {
	writer  messageWriter
	now     func() time.Time
	timeout time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

const defaultWriteTimeout = 5 * time.Second

func NewProducer(brokers []string, topic string, log *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer:  writer,
		now:     time.Now,
		timeout: defaultWriteTimeout,
		log:     log,
	}
}

// Notify queues a FlightEvent for flightID. Only encoding errors are
// returned; delivery failures are logged.
func (p *Producer) Notify(ctx context.Context, flightID int64) error {
	const op = "kafka.Producer.Notify"

	data, err := json.Marshal(FlightEvent{
		Type:       EventFlightChanged,
		FlightID:   flightID,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(flightID, 10)),
		Value: data,
	}

	// The request context ends with the response; keep its values only.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.log.Error("publish flight event",
				slog.String("op", op),
				slog.Int64("flight_id", flightID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.wg.Wait()
	return p.writer.Close()
}
