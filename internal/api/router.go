package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-inventory-ledger/internal/api/handler"
	"github.com/warehouse-inventory-ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	itemHandler *handler.ItemHandler,
	movementHandler *handler.MovementHandler,
	auditHandler *handler.AuditHandler,
) {
	// CorrelationID must run before Logger so access lines carry the ID
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Item master-data operations
		items := v1.Group("/items")
		{
			items.POST("", itemHandler.Create)
			items.GET("", itemHandler.List)
			items.GET("/:id", itemHandler.GetByID)
			items.GET("/sku/:sku", itemHandler.GetBySKU)
			items.DELETE("/:id", itemHandler.Deactivate)
			items.GET("/:id/audit", auditHandler.GetByItemID)
		}

		// Stock movement operations
		movements := v1.Group("/movements")
		{
			movements.POST("/receipts", movementHandler.CreateReceipt)
			movements.POST("/issues", movementHandler.CreateIssue)
			movements.GET("", movementHandler.List)
			movements.GET("/:id", movementHandler.GetByID)
			movements.GET("/code/:code", movementHandler.GetByCode)
			movements.POST("/:id/process", movementHandler.Process)
			movements.POST("/:id/cancel", movementHandler.Cancel)
			movements.GET("/:id/audit", auditHandler.GetByMovementID)
			movements.GET("/code/:code/audit", auditHandler.GetByCode)
		}

		// Audit trail queries across movements
		v1.GET("/audit", auditHandler.ListByTimeRange)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
