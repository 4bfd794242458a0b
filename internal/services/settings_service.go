package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/repositories"
)

const settingsCacheKey = "business_settings"

// settingsService implements the SettingsService interface
type settingsService struct {
	repo      repositories.BusinessSettingsRepository
	cache     *cache.Cache
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewSettingsService creates a settings service. A zero ttl disables caching.
func NewSettingsService(repo repositories.BusinessSettingsRepository, ttl time.Duration, logger *logrus.Logger) SettingsService {
	if logger == nil {
		logger = logrus.New()
	}

	s := &settingsService{
		repo:      repo,
		validator: validator.New(),
		logger:    logger,
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// GetSettings returns the stored settings, or empty zero-tax settings when none exist yet
func (s *settingsService) GetSettings(ctx context.Context) (*models.BusinessSettings, error) {
	return loadSettings(ctx, s.repo)
}

// loadSettings reads the settings row; a missing row is a valid zero-tax configuration
func loadSettings(ctx context.Context, repo repositories.BusinessSettingsRepository) (*models.BusinessSettings, error) {
	settings, err := repo.Get(ctx)
	if err != nil {
		if repositories.IsNotFound(err) {
			return models.NewBusinessSettings("", "", ""), nil
		}
		return nil, fmt.Errorf("failed to get business settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings validates and stores new settings, then drops the cached copy
func (s *settingsService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*models.BusinessSettings, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: update settings request cannot be nil", ErrInvalidInput)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	raw := req.Raw()
	if err := raw.Validate(); err != nil {
		return nil, invalidRequest(err)
	}

	settings := models.NewBusinessSettings(req.Name, req.Address, req.Phone)
	settings.Email = req.Email
	if req.TaxNumbers != nil {
		settings.TaxNumbers = req.TaxNumbers
	}
	settings.SetRawTaxSettings(raw)

	if err := settings.Validate(); err != nil {
		return nil, invalidRequest(err)
	}

	if err := s.repo.CreateOrUpdate(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save business settings: %w", err)
	}
	s.invalidate()

	resolved := pricing.ResolveTaxConfig(raw)
	s.logger.WithFields(logrus.Fields{
		"federal_rate":    resolved.FederalRate.String(),
		"provincial_rate": resolved.ProvincialRate.String(),
	}).Info("Business settings updated")

	return settings, nil
}

// CurrentTaxConfig resolves the current settings, served from cache when fresh
func (s *settingsService) CurrentTaxConfig(ctx context.Context) (models.TaxConfiguration, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(settingsCacheKey); ok {
			return cached.(models.TaxConfiguration), nil
		}
	}

	settings, err := loadSettings(ctx, s.repo)
	if err != nil {
		return models.TaxConfiguration{}, err
	}

	config := pricing.ResolveTaxConfig(settings.RawTaxSettings())
	if s.cache != nil {
		s.cache.SetDefault(settingsCacheKey, config)
	}
	return config, nil
}

// EnsureSeeded stores seed when no settings row exists. It reports whether it wrote.
func (s *settingsService) EnsureSeeded(ctx context.Context, seed *models.BusinessSettings) (bool, error) {
	if seed == nil {
		return false, nil
	}

	exists, err := s.repo.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check business settings: %w", err)
	}
	if exists {
		return false, nil
	}

	if err := s.repo.CreateOrUpdate(ctx, seed); err != nil {
		return false, fmt.Errorf("failed to seed business settings: %w", err)
	}
	s.invalidate()

	s.logger.WithField("business_name", seed.Name).Info("Seeded business settings")
	return true, nil
}

func (s *settingsService) invalidate() {
	if s.cache != nil {
		s.cache.Delete(settingsCacheKey)
	}
}
