package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads messages until ctx is done or handler fails. It returns nil
// when ctx was canceled.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, FlightEvent) error) error {
	const op = "kafka.Consumer.Consume"

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		ev, err := DecodeFlightEvent(msg)
		if err != nil {
			// A malformed message must not stall the partition.
			continue
		}

		if err := handler(ctx, ev); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}
}

func DecodeFlightEvent(msg kafka.Message) (FlightEvent, error) {
	var ev FlightEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return FlightEvent{}, err
	}
	if ev.FlightID == 0 {
		return FlightEvent{}, errors.New("missing flight_id")
	}
	return ev, nil
}
