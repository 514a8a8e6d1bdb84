package dispatcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"inventory-service/internal/domains/outbox/model"
	"inventory-service/internal/domains/outbox/repository"
	"inventory-service/pkg/logger"
)

// Publisher is the piece of the broker the dispatcher needs. The event id
// travels as the broker message id so consumers can deduplicate replays.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType, messageID string, body []byte) error
}

// Dispatcher polls the outbox table and relays PENDING events to the broker.
// Delivery is at-least-once: a crash between publish and commit re-sends the
// same event with the same message id on the next pass.
type Dispatcher struct {
	repo         repository.RepositoryInterface
	publisher    Publisher
	batchSize    int
	pollInterval time.Duration
	log          zerolog.Logger
}

func New(repo repository.RepositoryInterface, publisher Publisher, batchSize int, pollInterval time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:         repo,
		publisher:    publisher,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		log:          logger.Component("outbox-dispatcher"),
	}
}

// Run polls until ctx is cancelled. A full batch triggers an immediate next
// pass so a backlog drains faster than one batch per tick.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info().
		Int("batch_size", d.batchSize).
		Dur("poll_interval", d.pollInterval).
		Msg("Outbox dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("Outbox dispatcher stopped")
			return
		case <-ticker.C:
		}

		for {
			sent, failed, err := d.DrainOnce(ctx)
			if err != nil {
				d.log.Error().Err(err).Msg("Outbox drain failed")
				break
			}
			if sent+failed < d.batchSize {
				break
			}
		}
	}
}

// DrainOnce claims and relays one batch. Exposed so the admin retry path
// and tests can force a pass without waiting for the ticker.
func (d *Dispatcher) DrainOnce(ctx context.Context) (int, int, error) {
	sent, failed, err := d.repo.DrainPending(ctx, d.batchSize, func(ev model.OutboxEvent) error {
		return d.publisher.PublishEvent(ctx, ev.Type, ev.ID.String(), ev.Payload)
	})
	if err != nil {
		return 0, 0, err
	}

	if sent > 0 || failed > 0 {
		d.log.Info().Int("sent", sent).Int("failed", failed).Msg("Outbox batch dispatched")
	}

	return sent, failed, nil
}
