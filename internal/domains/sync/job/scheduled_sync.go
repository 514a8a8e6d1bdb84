package job

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"inventory-service/internal/domains/sync/service"
	"inventory-service/pkg/logger"
)

// TypeScheduledSync is the nightly unscoped reconciliation run.
const TypeScheduledSync = "wms:scheduled_sync"

// NewScheduledSyncTask builds the periodic task; the payload is empty, the
// run is always a full incremental sync.
func NewScheduledSyncTask() *asynq.Task {
	return asynq.NewTask(TypeScheduledSync, nil)
}

// ScheduledSyncJob enqueues a sync request on schedule. The actual run
// happens on the broker consumer, same as an operator-triggered sync.
type ScheduledSyncJob struct {
	service service.ServiceInterface
	log     zerolog.Logger
}

func NewScheduledSyncJob(svc service.ServiceInterface) *ScheduledSyncJob {
	return &ScheduledSyncJob{
		service: svc,
		log:     logger.Component("scheduled-sync"),
	}
}

func (j *ScheduledSyncJob) HandleScheduledSync(ctx context.Context, _ *asynq.Task) error {
	req, err := j.service.RequestSync(ctx, nil, "scheduled_full_sync", "scheduler")
	if err != nil {
		j.log.Error().Err(err).Msg("Scheduled sync request failed")
		return err
	}

	j.log.Info().Str("request_id", req.ID.String()).Msg("Scheduled sync queued")
	return nil
}
