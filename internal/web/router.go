// Package web assembles the HTTP API process: routing, middleware, and the
// server lifecycle.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stars-deposit-ledger/internal/web/handler"
	"github.com/stars-deposit-ledger/internal/web/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	depositHandler *handler.DepositHandler,
	userHandler *handler.UserHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// Route prefix matches what the marketplace frontend expects
	api := r.Group("/gacha/api")
	{
		deposits := api.Group("/deposit")
		{
			deposits.POST("/init", depositHandler.Init)
			deposits.GET("/check/:payload", depositHandler.Check)
			deposits.POST("/cancel/:payload", depositHandler.Cancel)
			deposits.POST("/verify", depositHandler.Verify)
		}

		users := api.Group("/user")
		{
			users.GET("/:id", userHandler.GetByID)
			users.GET("/:id/transactions", userHandler.GetTransactions)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
