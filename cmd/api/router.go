package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/middleware"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	// ========================================
	// WEBHOOK ROUTES (PUBLIC, RAW BODY)
	// ========================================
	// Signature verification needs the exact transmitted bytes, so the raw
	// body is captured before any JSON binding.
	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.CaptureRawBody())
	{
		webhooks.POST("/shopify/:channelId", c.WebhookHandler.ShopifyWebhook)
		webhooks.POST("/woocommerce/:channelId", c.WebhookHandler.WooCommerceWebhook)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		// ========================================
		// OAUTH CALLBACK (PUBLIC, HTTPS ENFORCED)
		// ========================================
		oauth := v1.Group("/oauth")
		oauth.Use(middleware.RequireHTTPS(c.Config.IsProduction()))
		{
			oauth.GET("/callback", c.OAuthHandler.Callback)

			protected := oauth.Group("")
			protected.Use(middleware.AuthMiddleware(c.Config.JWT.Secret))
			protected.POST("/start", c.OAuthHandler.Start)
		}

		// ========================================
		// INVENTORY ROUTES (PROTECTED)
		// ========================================
		inventory := v1.Group("/inventory")
		inventory.Use(middleware.AuthMiddleware(c.Config.JWT.Secret))
		{
			// Movements
			inventory.POST("/movements", c.InventoryHandler.CreateMovement)
			inventory.GET("/movements", c.InventoryHandler.ListMovements)
			inventory.POST("/movements/:id/execute", c.InventoryHandler.ExecuteMovement)
			inventory.POST("/movements/:id/cancel", c.InventoryHandler.CancelMovement)

			// Absolute / adjustment updates
			inventory.POST("/update", c.InventoryHandler.UpdateStock)
			inventory.POST("/bulk-update", c.InventoryHandler.BulkUpdateStock)

			// Audit trail
			inventory.GET("/audit", c.InventoryHandler.GetAuditTrail)

			// Transfers
			inventory.POST("/transfers", c.TransferHandler.CreateTransfer)
			inventory.GET("/transfers", c.TransferHandler.ListTransfers)
			inventory.POST("/transfers/:id/approve",
				middleware.RequireRole(tenant.RoleAdmin, tenant.RoleWarehouseManager),
				c.TransferHandler.ApproveTransfer)
			inventory.POST("/transfers/:id/reject",
				middleware.RequireRole(tenant.RoleAdmin, tenant.RoleWarehouseManager),
				c.TransferHandler.RejectTransfer)
			inventory.POST("/transfers/:id/cancel", c.TransferHandler.CancelTransfer)
			inventory.POST("/transfers/:id/complete", c.TransferHandler.CompleteTransfer)
			inventory.POST("/transfers/:id/reschedule", c.TransferHandler.RescheduleTransfer)

			// Cycle counts
			inventory.POST("/cycle-counts", c.CycleCountHandler.CreateSession)
			inventory.GET("/cycle-counts/:id", c.CycleCountHandler.GetSession)
			inventory.POST("/cycle-counts/:id/counts", c.CycleCountHandler.SubmitCounts)
			inventory.GET("/cycle-counts/:id/variance", c.CycleCountHandler.GetVarianceReport)
			inventory.POST("/cycle-counts/:id/complete", c.CycleCountHandler.CompleteSession)
		}
	}

	return router
}

func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"services":  gin.H{},
		}

		dbStatus := "ok"
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := appCtx.DB.HealthCheck(ctx); err != nil {
				dbStatus = "error"
				health["status"] = "degraded"
			}
		}

		// Redis is non-critical: the token cache refetches and the rate
		// limiter fails open.
		redisStatus := "ok"
		if appCtx.Cache == nil {
			redisStatus = "disconnected"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := appCtx.Cache.Ping(ctx); err != nil {
				redisStatus = "error"
			}
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}
