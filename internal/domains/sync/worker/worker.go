package worker

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"inventory-service/internal/domains/sync/model"
	"inventory-service/internal/domains/sync/service"
	"inventory-service/internal/infrastructure/broker"
	"inventory-service/internal/infrastructure/wms"
	"inventory-service/pkg/logger"
)

// Worker consumes ForceWmsSync commands and runs reconciliation.
type Worker struct {
	broker   *broker.Broker
	service  service.ServiceInterface
	prefetch int
	log      zerolog.Logger
}

func New(b *broker.Broker, svc service.ServiceInterface, prefetch int) *Worker {
	return &Worker{
		broker:   b,
		service:  svc,
		prefetch: prefetch,
		log:      logger.Component("sync-worker"),
	}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.broker.Channel(w.prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(w.broker.Config.SyncQueue, "sync-worker", false, false, false, false, nil)
	if err != nil {
		return err
	}

	w.log.Info().Str("queue", w.broker.Config.SyncQueue).Msg("Sync worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Sync worker stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				w.log.Warn().Msg("Sync delivery channel closed")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var cmd model.ForceWmsSyncCommand
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		w.log.Error().Err(err).Str("message_id", d.MessageId).Msg("Malformed sync command, dead-lettering")
		d.Nack(false, false)
		return
	}

	if err := w.service.RunSync(ctx, cmd); err != nil {
		if wms.IsRetriable(err) {
			w.log.Warn().Err(err).Str("request_id", cmd.RequestID.String()).Msg("Retriable sync failure, requeueing")
			// Brief pause so a down WMS does not spin the requeue loop.
			time.Sleep(time.Second)
			d.Nack(false, true)
			return
		}
		w.log.Error().Err(err).Str("request_id", cmd.RequestID.String()).Msg("Sync run failed, dead-lettering")
		d.Nack(false, false)
		return
	}

	d.Ack(false)
}
