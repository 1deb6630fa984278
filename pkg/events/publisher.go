package events

import (
	"context"
	"time"

	"lagoonstay/pkg/kafka"
	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"
)

// Publisher delivers booking lifecycle events to in-process subscribers
// and, when configured, to Kafka. Delivery is best effort: a booking is
// never failed because its event could not be published.
type Publisher struct {
	broadcaster *Broadcaster
	producer    *kafka.Producer
	log         *logger.Logger
}

func NewPublisher(broadcaster *Broadcaster, producer *kafka.Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		broadcaster: broadcaster,
		producer:    producer,
		log:         log,
	}
}

// Publish fans the event out. Kafka failures are logged and swallowed.
func (p *Publisher) Publish(ctx context.Context, event model.Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	p.broadcaster.Publish(event)

	if p.producer == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(event.Name).
		WithSource("lagoonstay-server").
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Warn("Failed to publish event to kafka",
			"event", event.Name,
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}
