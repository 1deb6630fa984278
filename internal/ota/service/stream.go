package service

import (
	"context"
	"errors"

	"lagoonstay/pkg/config"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/kafka"
	kafka_config "lagoonstay/pkg/kafka/config"
	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"
)

// StreamWorker consumes channel notifications from Kafka for providers
// that push to a stream instead of calling the webhook. Messages carry
// the normalized OTANotification encoding.
type StreamWorker struct {
	consumer *kafka.Consumer
	log      *logger.Logger
}

func NewStreamWorker(reconcile ReconcileService, cfg *config.Config, kafkaCfg *kafka_config.Config, log *logger.Logger) (*StreamWorker, error) {
	handler := func(ctx context.Context, msg kafka.Message) error {
		var notification model.OTANotification
		if err := msg.DecodeValue(&notification); err != nil {
			return kafka.NewPermanentError("deserialization failed", err)
		}

		result, err := reconcile.Reconcile(ctx, &notification)
		if err != nil {
			// Business rejections will fail identically on replay, so
			// they go straight to the DLQ instead of retrying.
			if apperrors.IsClientError(err) {
				return kafka.NewPermanentError("notification rejected", err)
			}
			return kafka.NewTransientError("failed to reconcile notification", err)
		}

		log.Info("Stream notification reconciled",
			"source", notification.Source,
			"external_id", notification.ExternalID,
			"action", result.Action,
			"booking_id", result.BookingID,
		)
		return nil
	}

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.OTAStreamTopic, cfg.OTAConsumerGroup, cfg.OTAStreamDLQ, handler)
	if err != nil {
		return nil, err
	}

	return &StreamWorker{consumer: consumer, log: log}, nil
}

// Start consumes until the context is cancelled.
func (w *StreamWorker) Start(ctx context.Context) {
	w.log.Info("Starting OTA stream worker")
	if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.log.Error("OTA stream worker stopped", "error", err)
	}
}

func (w *StreamWorker) Close() error {
	return w.consumer.Close()
}
