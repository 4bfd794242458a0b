package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/adapters/storage"
	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/repositories"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	Settings  SettingsService
	Pricing   PricingService
	Snapshots SnapshotWriter
	Checkout  CheckoutService
	Records   ServiceRecordService
	Receipts  ReceiptService
}

// ServiceConfig holds configuration for services
type ServiceConfig struct {
	SettingsCacheTTL     time.Duration
	SnapshotWriteTimeout time.Duration
	ThermalWidth         int

	// Archive receives rendered receipts; nil disables archiving
	Archive storage.FileStorage
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

// NewServiceContainer creates a new service container with all services
func NewServiceContainer(repos *repositories.RepositoryContainer, config *ServiceConfig) (*ServiceContainer, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository container cannot be nil")
	}
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	settings := NewSettingsService(repos.BusinessSettings, config.SettingsCacheTTL, config.Logger)
	snapshots := NewSnapshotWriter(repos.Snapshots, config.SnapshotWriteTimeout, config.Metrics, config.Logger)

	container := &ServiceContainer{
		Settings:  settings,
		Pricing:   NewPricingService(settings),
		Snapshots: snapshots,
		Checkout: NewCheckoutService(
			repos.ServiceRecords,
			repos.BusinessSettings,
			repos.Transactions,
			snapshots,
			config.Metrics,
			config.Logger,
		),
		Records: NewServiceRecordService(repos.ServiceRecords, settings, snapshots, config.Logger),
		Receipts: NewReceiptService(repos.ServiceRecords, repos.Snapshots, settings, ReceiptServiceOptions{
			Archive:      config.Archive,
			ThermalWidth: config.ThermalWidth,
			Metrics:      config.Metrics,
			Logger:       config.Logger,
		}),
	}

	return container, container.Validate()
}

// Validate validates that all services are properly initialized
func (sc *ServiceContainer) Validate() error {
	if sc.Settings == nil {
		return fmt.Errorf("settings service is nil")
	}
	if sc.Pricing == nil {
		return fmt.Errorf("pricing service is nil")
	}
	if sc.Snapshots == nil {
		return fmt.Errorf("snapshot writer is nil")
	}
	if sc.Checkout == nil {
		return fmt.Errorf("checkout service is nil")
	}
	if sc.Records == nil {
		return fmt.Errorf("service record service is nil")
	}
	if sc.Receipts == nil {
		return fmt.Errorf("receipt service is nil")
	}
	return nil
}
