package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"autoservice-billing-api/internal/models"
)

// SeedSettings are the business settings written on first start, when no settings row exists yet
type SeedSettings struct {
	BusinessName    string
	BusinessAddress string
	BusinessPhone   string
	Tax             models.RawTaxSettings
}

func loadSeedSettings(v *viper.Viper) (SeedSettings, error) {
	seed := SeedSettings{
		BusinessName:    v.GetString("BUSINESS_NAME"),
		BusinessAddress: v.GetString("BUSINESS_ADDRESS"),
		BusinessPhone:   v.GetString("BUSINESS_PHONE"),
	}

	var err error
	if seed.Tax.TaxRate, err = optionalRate(v, "TAX_RATE"); err != nil {
		return SeedSettings{}, err
	}
	if seed.Tax.FederalTaxRate, err = optionalRate(v, "FEDERAL_TAX_RATE"); err != nil {
		return SeedSettings{}, err
	}
	if seed.Tax.ProvincialTaxRate, err = optionalRate(v, "PROVINCIAL_TAX_RATE"); err != nil {
		return SeedSettings{}, err
	}

	return seed, nil
}

// optionalRate parses a percentage; an unset or blank key yields nil
func optionalRate(v *viper.Viper, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return nil, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a decimal percentage, got %q", key, raw)
	}
	return &rate, nil
}

// Validate rejects seed rates outside [0, 100]
func (s SeedSettings) Validate() error {
	if err := s.Tax.Validate(); err != nil {
		return fmt.Errorf("invalid seed tax settings: %w", err)
	}
	return nil
}

// BusinessSettings builds the settings row to insert on first start
func (s SeedSettings) BusinessSettings() *models.BusinessSettings {
	settings := models.NewBusinessSettings(s.BusinessName, s.BusinessAddress, s.BusinessPhone)
	settings.SetRawTaxSettings(s.Tax)
	return settings
}
