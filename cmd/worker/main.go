package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"inventory-service/pkg/container"
)

// The worker process runs everything that is not the HTTP hot path: the
// outbox dispatcher, the two broker consumers, and the periodic jobs.
func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := container.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize container")
	}
	defer c.Cleanup()

	consumers := startConsumers(ctx, c)

	srv, scheduler := startAsynq(c)

	health := startHealthServer(c)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	// Stop intake first, then let in-flight work drain.
	scheduler.Shutdown()
	srv.Shutdown()
	cancel()
	consumers.Wait()
	health.Close()

	log.Info().Msg("worker exited")
}
