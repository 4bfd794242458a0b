package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/middleware"
	"autoservice-billing-api/internal/services"
)

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	Services *services.ServiceContainer
	// AuthService guards record deletion and settings updates; nil leaves them open
	AuthService *middleware.AuthService
	Database    HealthChecker
	Metrics     *metrics.Metrics
	Logger      *logrus.Logger
}

// MiddlewareConfig holds the global middleware settings
type MiddlewareConfig struct {
	AllowedOrigins []string
	RateLimit      middleware.RateLimiterConfig
	MaxBodyBytes   int64
	Metrics        *metrics.Metrics
	Logger         *logrus.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}

	pricingHandler := NewPricingHandler(config.Services.Pricing, logger)
	checkoutHandler := NewCheckoutHandler(config.Services.Checkout, logger)
	recordHandler := NewServiceRecordHandler(config.Services.Records, logger)
	receiptHandler := NewReceiptHandler(config.Services.Receipts, logger)
	settingsHandler := NewSettingsHandler(config.Services.Settings, logger)
	healthHandler := NewHealthHandler(config.Database, logger)

	adminOnly := middleware.RequireRole(config.AuthService, middleware.RoleAdmin)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", healthHandler.Health)
	if config.Metrics != nil {
		router.GET("/metrics", gin.WrapH(config.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		pricing := v1.Group("/pricing")
		{
			pricing.GET("/tax-configuration", pricingHandler.TaxConfiguration)
			pricing.POST("/quote", pricingHandler.Quote)
			pricing.POST("/decompose", pricingHandler.Decompose)
		}

		v1.POST("/checkout", checkoutHandler.Checkout)

		records := v1.Group("/service-records")
		{
			records.GET("", recordHandler.ListRecords)
			records.POST("", recordHandler.RecordService)
			records.GET("/:id", recordHandler.GetRecord)
			records.DELETE("/:id", append(adminOnly, recordHandler.DeleteRecord)...)
		}

		receipts := v1.Group("/receipts")
		{
			receipts.POST("/consolidate", receiptHandler.Consolidate)
			receipts.POST("/print", receiptHandler.Print)
			receipts.GET("/snapshots/:id", receiptHandler.GetSnapshot)
			receipts.GET("/snapshots/:id/print", receiptHandler.PrintSnapshot)
		}

		settings := v1.Group("/settings")
		{
			settings.GET("/business", settingsHandler.GetSettings)
			settings.PUT("/business", append(adminOnly, settingsHandler.UpdateSettings)...)
		}
	}
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, config *MiddlewareConfig) {
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}
	maxBody := config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics(config.Metrics))
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.NewClientRateLimiter(config.RateLimit, logger).Middleware())
	router.Use(middleware.RequestSizeLimit(maxBody))
	router.Use(middleware.ContentTypeValidation())
	router.Use(middleware.AuditLogger(logger))
}
