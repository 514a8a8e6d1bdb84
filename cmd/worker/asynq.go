package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	inventoryjob "inventory-service/internal/domains/inventory/job"
	syncjob "inventory-service/internal/domains/sync/job"
	"inventory-service/pkg/container"
)

// startAsynq runs the periodic job machinery: the server that executes
// tasks and the scheduler that enqueues them on a cron. Both share the
// worker's Redis instance.
func startAsynq(c *container.Container) (*asynq.Server, *asynq.Scheduler) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}

	mux := asynq.NewServeMux()

	expiryJob := inventoryjob.NewExpiryJob(c.InventoryService)
	mux.HandleFunc(inventoryjob.TypeExpireReservations, expiryJob.HandleExpireReservations)

	scheduledSync := syncjob.NewScheduledSyncJob(c.SyncService)
	mux.HandleFunc(syncjob.TypeScheduledSync, scheduledSync.HandleScheduledSync)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("asynq server failed")
		}
	}()

	scheduler := asynq.NewScheduler(redisOpt, nil)

	sweepTask, err := inventoryjob.NewExpireReservationsTask(c.Config.Worker.SweepBatchLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sweep task")
	}
	sweepSpec := fmt.Sprintf("@every %s", c.Config.Worker.SweepInterval)
	if _, err := scheduler.Register(sweepSpec, sweepTask); err != nil {
		log.Fatal().Err(err).Msg("failed to register sweep schedule")
	}

	// Nightly full reconciliation, off-peak.
	if _, err := scheduler.Register("0 3 * * *", syncjob.NewScheduledSyncTask()); err != nil {
		log.Fatal().Err(err).Msg("failed to register nightly sync schedule")
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal().Err(err).Msg("scheduler failed")
		}
	}()

	log.Info().
		Str("sweep", sweepSpec).
		Msg("asynq server and scheduler started")

	return srv, scheduler
}
