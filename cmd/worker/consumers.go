package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	outboundworker "inventory-service/internal/domains/outbound/worker"
	"inventory-service/internal/domains/outbox/dispatcher"
	syncworker "inventory-service/internal/domains/sync/worker"
	"inventory-service/pkg/container"
)

// startConsumers launches the outbox dispatcher and the two broker
// consumers. All three stop when ctx is cancelled; Wait blocks until they
// have drained.
func startConsumers(ctx context.Context, c *container.Container) *sync.WaitGroup {
	var wg sync.WaitGroup

	d := dispatcher.New(c.OutboxRepo, c.Broker, c.Config.Dispatcher.BatchSize, c.Config.Dispatcher.PollInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Run(ctx)
	}()

	outbound := outboundworker.New(c.Broker, c.InventoryRepo, c.WMSClient, c.Config.Worker.OutboundPrefetch)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := outbound.Run(ctx); err != nil {
			log.Error().Err(err).Msg("outbound worker failed")
		}
	}()

	syncer := syncworker.New(c.Broker, c.SyncService, c.Config.Worker.SyncPrefetch)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := syncer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("sync worker failed")
		}
	}()

	return &wg
}
