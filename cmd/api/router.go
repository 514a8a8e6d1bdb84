package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/shared/middleware"
	"inventory-service/pkg/container"
)

// NewRouter builds the HTTP surface. The hot path (reserve, release, query)
// is unauthenticated and called service-to-service; everything operator
// facing sits behind /admin with bearer-token auth.
func NewRouter(c *container.Container) *gin.Engine {
	if c.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	registerHealthRoutes(router, c)

	inventory := router.Group("/inventory")
	{
		inventory.POST("/reserve", c.InventoryHandler.Reserve)
		inventory.POST("/release", c.InventoryHandler.Release)
		inventory.GET("/:sku", c.InventoryHandler.GetAvailable)
	}

	admin := router.Group("/admin", middleware.AdminAuth(c.JWT))
	{
		admin.POST("/inventory/adjust", c.InventoryHandler.Adjust)
		admin.POST("/skus", c.InventoryHandler.CreateSKU)
		admin.POST("/batches", c.InventoryHandler.CreateBatch)

		admin.POST("/wms/sync", c.SyncHandler.ForceSync)
		admin.GET("/wms/sync", c.SyncHandler.ListSyncRequests)
		admin.GET("/wms/sync/:id", c.SyncHandler.GetSyncRequest)

		admin.GET("/outbox/failed", c.OutboxHandler.ListFailed)
		admin.POST("/outbox/:id/retry", c.OutboxHandler.Retry)
	}

	return router
}

func registerHealthRoutes(router *gin.Engine, c *container.Container) {
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": c.Config.App.Name,
			"version": c.Config.App.Version,
		})
	})

	// Readiness requires the hard dependencies; the cache is optional.
	router.GET("/ready", func(ctx *gin.Context) {
		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		if err := c.Broker.HealthCheck(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "broker": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
