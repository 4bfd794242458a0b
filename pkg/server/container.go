package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/adapters/storage"
	"autoservice-billing-api/internal/config"
	"autoservice-billing-api/internal/database"
	"autoservice-billing-api/internal/handlers"
	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/middleware"
	"autoservice-billing-api/internal/repositories/sqlite"
	"autoservice-billing-api/internal/services"
)

const seedTimeout = 10 * time.Second

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Database *database.ConnectionManager
	Metrics  *metrics.Metrics
	Services *services.ServiceContainer
	// Auth is nil when AUTH_ENABLED is false
	Auth *middleware.AuthService
	// Archive is nil when receipt archiving is disabled
	Archive storage.FileStorage
}

// NewContainer wires the database, services and auth from configuration.
// A nil logger is built from the configuration.
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}

	container := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	container.Database = database.NewConnectionManager(cfg.Database.ToConnectionConfig(logger))
	if err := container.Database.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := container.Metrics.RegisterDB(container.Database.GetDB(), "autoservice"); err != nil {
		logger.WithError(err).Warn("Failed to register database pool metrics")
	}

	if cfg.Receipts.ArchiveEnabled {
		archive, err := storage.NewFactory(storage.DefaultRetryConfig(), logger).Create(&storage.StorageConfig{
			Type:     cfg.Storage.Type,
			BasePath: cfg.Storage.LocalPath,
		})
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to create receipt archive: %w", err)
		}
		container.Archive = archive
	}

	repos := sqlite.NewRepositoryContainer(container.Database.GetDB(), logger)
	serviceContainer, err := services.NewServiceContainer(repos, &services.ServiceConfig{
		SettingsCacheTTL:     cfg.Settings.CacheTTL,
		SnapshotWriteTimeout: cfg.Receipts.SnapshotWriteTimeout,
		ThermalWidth:         cfg.Receipts.ThermalWidth,
		Archive:              container.Archive,
		Metrics:              container.Metrics,
		Logger:               logger,
	})
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to create service container: %w", err)
	}
	container.Services = serviceContainer

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()
	if _, err := serviceContainer.Settings.EnsureSeeded(ctx, cfg.Seed.BusinessSettings()); err != nil {
		container.Close()
		return nil, err
	}

	if cfg.Auth.Enabled {
		container.Auth = middleware.NewAuthService(&middleware.AuthConfig{JWTSecret: cfg.Auth.Secret}, logger)
	}

	logger.WithFields(logrus.Fields{
		"environment":     cfg.Environment,
		"auth_enabled":    cfg.Auth.Enabled,
		"archive_enabled": cfg.Receipts.ArchiveEnabled,
	}).Info("Application container initialized")

	return container, nil
}

// Router builds the HTTP engine with global middleware and all routes
func (c *Container) Router() *gin.Engine {
	router := gin.New()

	handlers.SetupMiddleware(router, &handlers.MiddlewareConfig{
		AllowedOrigins: c.Config.CORS.AllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: c.Config.RateLimit.RequestsPerSecond,
			Burst:             c.Config.RateLimit.Burst,
		},
		Metrics: c.Metrics,
		Logger:  c.Logger,
	})
	handlers.SetupRoutes(router, &handlers.RouterConfig{
		Services:    c.Services,
		AuthService: c.Auth,
		Database:    c.Database,
		Metrics:     c.Metrics,
		Logger:      c.Logger,
	})

	return router
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
