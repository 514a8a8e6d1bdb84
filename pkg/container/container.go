package container

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"inventory-service/internal/config"
	invhandler "inventory-service/internal/domains/inventory/handler"
	invrepo "inventory-service/internal/domains/inventory/repository"
	invservice "inventory-service/internal/domains/inventory/service"
	outboxhandler "inventory-service/internal/domains/outbox/handler"
	outboxrepo "inventory-service/internal/domains/outbox/repository"
	synchandler "inventory-service/internal/domains/sync/handler"
	syncrepo "inventory-service/internal/domains/sync/repository"
	syncservice "inventory-service/internal/domains/sync/service"
	"inventory-service/internal/infrastructure/broker"
	rediscache "inventory-service/internal/infrastructure/cache"
	"inventory-service/internal/infrastructure/database"
	"inventory-service/internal/infrastructure/wms"
	"inventory-service/pkg/cache"
	"inventory-service/pkg/jwt"
	"inventory-service/pkg/logger"
)

// Container wires the application graph. Initialization order matters:
// infrastructure first, then repositories, then services, then handlers.
// Cleanup releases resources in reverse.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB        *database.PostgresDB
	Cache     cache.Cache
	Broker    *broker.Broker
	WMSClient wms.Client
	JWT       *jwt.Manager

	// Repositories
	OutboxRepo    outboxrepo.RepositoryInterface
	InventoryRepo invrepo.RepositoryInterface
	SyncRepo      syncrepo.RepositoryInterface

	// Services
	InventoryService invservice.ServiceInterface
	SyncService      syncservice.ServiceInterface

	// HTTP handlers
	InventoryHandler *invhandler.Handler
	OutboxHandler    *outboxhandler.Handler
	SyncHandler      *synchandler.Handler
}

// New builds the full graph. Fails fast: a service that cannot reach its
// database or broker should not start.
func New(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.App.Environment)

	c := &Container{Config: cfg}

	if err := c.initInfrastructure(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}

	c.initDomains()

	log.Info().Str("env", cfg.App.Environment).Msg("container initialized")
	return c, nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	c.DB = database.NewPostgresDB(c.Config.Database)
	if err := c.DB.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	// Cache is best-effort; a dead Redis degrades to direct reads.
	redisCache := rediscache.NewRedisCache(c.Config.Redis.Addr, c.Config.Redis.Password, c.Config.Redis.DB)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, running without cache")
	} else {
		c.Cache = redisCache
	}

	c.Broker = broker.NewBroker(c.Config.Broker)
	if err := c.Broker.Connect(); err != nil {
		return fmt.Errorf("failed to connect broker: %w", err)
	}
	if err := c.Broker.DeclareTopology(); err != nil {
		return fmt.Errorf("failed to declare broker topology: %w", err)
	}

	switch c.Config.WMS.Mode {
	case "http":
		c.WMSClient = wms.NewHTTPClient(c.Config.WMS.URL, c.Config.WMS.APIKey, c.Config.WMS.Timeout)
	default:
		c.WMSClient = wms.NewMockClient()
	}

	c.JWT = jwt.NewManager(c.Config.Admin.JWTSecret)

	return nil
}

func (c *Container) initDomains() {
	c.OutboxRepo = outboxrepo.NewRepository(c.DB.Pool)
	c.InventoryRepo = invrepo.NewRepository(c.DB.Pool, c.OutboxRepo)
	c.SyncRepo = syncrepo.NewRepository(c.DB.Pool, c.OutboxRepo)

	c.InventoryService = invservice.NewService(c.InventoryRepo, c.Cache, c.Config.Worker.ReservationTTL)
	c.SyncService = syncservice.NewService(c.SyncRepo, c.InventoryRepo, c.WMSClient, c.Broker)

	c.InventoryHandler = invhandler.NewHandler(c.InventoryService)
	c.OutboxHandler = outboxhandler.NewHandler(c.OutboxRepo)
	c.SyncHandler = synchandler.NewHandler(c.SyncService)
}

// Cleanup closes infrastructure in reverse initialization order.
func (c *Container) Cleanup() {
	if c.Broker != nil {
		c.Broker.Close()
	}
	if closer, ok := c.Cache.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close cache")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}

	log.Info().Msg("container cleaned up")
}
