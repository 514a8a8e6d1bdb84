package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"inventory-service/internal/domains/inventory/model"
	"inventory-service/internal/domains/inventory/repository"
	"inventory-service/internal/infrastructure/broker"
	"inventory-service/internal/infrastructure/wms"
	"inventory-service/pkg/logger"
)

// Worker mirrors local allocation and release events into the WMS. It
// consumes the outbound queue bound to InventoryAllocated and
// InventoryReleased; the routing key decides which WMS call is made.
//
// Delivery is at-least-once, so the same event can arrive twice after a
// crash. The WMS side keys operations on (orderRef, batch), which makes the
// mirror calls safe to repeat.
type Worker struct {
	broker    *broker.Broker
	repo      repository.RepositoryInterface
	wmsClient wms.Client
	prefetch  int
	log       zerolog.Logger
}

func New(b *broker.Broker, repo repository.RepositoryInterface, wmsClient wms.Client, prefetch int) *Worker {
	return &Worker{
		broker:    b,
		repo:      repo,
		wmsClient: wmsClient,
		prefetch:  prefetch,
		log:       logger.Component("outbound-worker"),
	}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.broker.Channel(w.prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(w.broker.Config.OutboundQueue, "outbound-worker", false, false, false, false, nil)
	if err != nil {
		return err
	}

	w.log.Info().Str("queue", w.broker.Config.OutboundQueue).Msg("Outbound worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Outbound worker stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				w.log.Warn().Msg("Outbound delivery channel closed")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	eventType := strings.TrimPrefix(d.RoutingKey, "inventory.")

	var event model.AllocationEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.log.Error().Err(err).Str("message_id", d.MessageId).Msg("Malformed event, dead-lettering")
		d.Nack(false, false)
		return
	}

	if err := w.mirror(ctx, eventType, event); err != nil {
		if wms.IsRetriable(err) {
			w.log.Warn().Err(err).
				Str("order_id", event.OrderID).
				Int64("batch_id", event.BatchID).
				Msg("Retriable WMS failure, requeueing")
			time.Sleep(time.Second)
			d.Nack(false, true)
			return
		}
		w.log.Error().Err(err).
			Str("order_id", event.OrderID).
			Int64("batch_id", event.BatchID).
			Msg("Mirror failed, dead-lettering")
		d.Nack(false, false)
		return
	}

	d.Ack(false)
}

// mirror performs the WMS call for one event and journals the audit entry.
func (w *Worker) mirror(ctx context.Context, eventType string, event model.AllocationEvent) error {
	batch, err := w.repo.GetBatchByID(ctx, event.BatchID)
	if err != nil {
		if errors.Is(err, model.ErrBatchNotFound) {
			// Database errors are retriable; a genuinely unknown batch is not.
			return &wms.APIError{StatusCode: 404, Body: "local batch not found"}
		}
		return err
	}

	if batch.ExternalBatchID == nil {
		// Batch never registered with the WMS; nothing to mirror.
		w.log.Warn().Int64("batch_id", batch.ID).Msg("Batch has no WMS id, skipping mirror")
		return nil
	}

	req := wms.AllocationRequest{
		ExternalBatchID: *batch.ExternalBatchID,
		Quantity:        event.Quantity,
		OrderRef:        event.OrderID,
	}

	switch eventType {
	case model.EventInventoryAllocated:
		err = w.wmsClient.Allocate(ctx, req)
	case model.EventInventoryReleased:
		err = w.wmsClient.Release(ctx, req)
	default:
		return &wms.APIError{StatusCode: 400, Body: "unhandled event type " + eventType}
	}
	if err != nil {
		return err
	}

	if err := w.repo.RecordOutboundMirror(ctx, batch.ID, eventType, event.OrderID); err != nil {
		// The WMS call succeeded; losing the audit row is not worth a
		// duplicate mirror attempt.
		w.log.Error().Err(err).Int64("batch_id", batch.ID).Msg("Failed to record mirror audit entry")
	}

	return nil
}
