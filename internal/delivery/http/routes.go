package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pricelens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		scan := v1.Group("/scan")
		{
			scan.POST("/invoice", handler.ScanInvoice)
			scan.GET("/history", handler.ScanHistory)
		}

		shops := v1.Group("/shops")
		{
			shops.GET("/nearby", handler.NearbyShops)
			shops.GET("/:id", handler.GetShop)
			shops.POST("", handler.CreateShop)
		}

		products := v1.Group("/products")
		{
			products.GET("", handler.ListProducts)
			products.POST("", handler.CreateProduct)
		}

		analytics := v1.Group("/analytics")
		{
			analytics.GET("/stats", handler.AnalyticsStats)
		}
	}

	return router
}
