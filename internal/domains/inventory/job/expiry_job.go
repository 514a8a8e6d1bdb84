package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"inventory-service/internal/domains/inventory/service"
	"inventory-service/pkg/logger"
)

// TypeExpireReservations is the periodic sweep that expires overdue
// PENDING reservations and gives their stock back.
const TypeExpireReservations = "inventory:expire_reservations"

type expirePayload struct {
	Limit int `json:"limit"`
}

// NewExpireReservationsTask builds the sweep task. limit caps how many
// orders one run touches.
func NewExpireReservationsTask(limit int) (*asynq.Task, error) {
	payload, err := json.Marshal(expirePayload{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expire payload: %w", err)
	}
	return asynq.NewTask(TypeExpireReservations, payload), nil
}

// ExpiryJob processes reservation expiry sweeps.
type ExpiryJob struct {
	service service.ServiceInterface
	log     zerolog.Logger
}

func NewExpiryJob(svc service.ServiceInterface) *ExpiryJob {
	return &ExpiryJob{
		service: svc,
		log:     logger.Component("expiry-job"),
	}
}

// HandleExpireReservations runs one sweep. Returning an error makes asynq
// retry the task with backoff.
func (j *ExpiryJob) HandleExpireReservations(ctx context.Context, t *asynq.Task) error {
	var payload expirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal expire payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Limit <= 0 {
		payload.Limit = 200
	}

	swept, err := j.service.ExpireDueReservations(ctx, payload.Limit)
	if err != nil {
		j.log.Error().Err(err).Int("swept", swept).Msg("Reservation expiry sweep failed")
		return err
	}

	return nil
}
