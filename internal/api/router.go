// Package api wires the HTTP surface of the wallet service: routing,
// middleware, and server lifecycle.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sahar009/awari-backend-sub002/internal/api/handler"
	"github.com/Sahar009/awari-backend-sub002/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	adminToken string,
	walletHandler *handler.WalletHandler,
	adminHandler *handler.AdminHandler,
	webhookHandler *handler.WebhookHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet operations, authenticated by upstream identity headers
		wallet := v1.Group("/wallet", middleware.RequireUser())
		{
			wallet.GET("", walletHandler.Get)
			wallet.POST("/fund", walletHandler.Fund)
			wallet.POST("/pay", walletHandler.Pay)
			wallet.POST("/transfer", walletHandler.Transfer)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.GET("/transactions", walletHandler.ListTransactions)
			wallet.GET("/statement", walletHandler.GetStatement)
		}

		// Admin review of queued withdrawals
		admin := v1.Group("/admin", middleware.RequireAdmin(adminToken))
		{
			admin.POST("/withdrawals/:id/approve", adminHandler.Approve)
			admin.POST("/withdrawals/:id/reject", adminHandler.Reject)
		}
	}

	// Gateway webhook, authenticated by HMAC signature instead of middleware
	r.POST("/webhooks/gateway", webhookHandler.Handle)

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
