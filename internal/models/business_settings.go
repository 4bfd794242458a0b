package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaxNumber is a registration number printed on receipts, e.g. GST/HST or QST
type TaxNumber struct {
	Label string `json:"label" validate:"required,max=50"`
	Value string `json:"value" validate:"required,max=100"`
}

// BusinessInfo is the identity block printed at the top of a receipt
type BusinessInfo struct {
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Phone      string      `json:"phone"`
	Email      string      `json:"email,omitempty"`
	TaxNumbers []TaxNumber `json:"tax_numbers"`
}

// BusinessSettings represents the business profile and tax settings (singleton)
type BusinessSettings struct {
	ID                int              `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	Address           string           `json:"address" db:"address"`
	Phone             string           `json:"phone" db:"phone"`
	Email             *string          `json:"email,omitempty" db:"email"`
	TaxNumbers        []TaxNumber      `json:"tax_numbers" db:"tax_numbers"`
	TaxRate           *decimal.Decimal `json:"tax_rate,omitempty" db:"tax_rate"`
	FederalTaxRate    *decimal.Decimal `json:"federal_tax_rate,omitempty" db:"federal_tax_rate"`
	ProvincialTaxRate *decimal.Decimal `json:"provincial_tax_rate,omitempty" db:"provincial_tax_rate"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// BusinessSettingsID is the primary key of the only settings row
const BusinessSettingsID = 1

// NewBusinessSettings creates business settings with the singleton ID and timestamp
func NewBusinessSettings(name, address, phone string) *BusinessSettings {
	return &BusinessSettings{
		ID:         BusinessSettingsID,
		Name:       name,
		Address:    address,
		Phone:      phone,
		TaxNumbers: []TaxNumber{},
		UpdatedAt:  time.Now().UTC(),
	}
}

// Validate validates the settings data
func (s *BusinessSettings) Validate() error {
	if s.ID != BusinessSettingsID {
		return fmt.Errorf("business settings ID must be %d (singleton)", BusinessSettingsID)
	}

	s.Name = SanitizeString(s.Name)
	if err := ValidateRequired(s.Name, "name"); err != nil {
		return err
	}
	if err := ValidateStringLength(s.Name, "name", 1, 255); err != nil {
		return err
	}
	if err := ValidateStringLength(s.Address, "address", 0, 500); err != nil {
		return err
	}
	if err := ValidateStringLength(s.Phone, "phone", 0, 50); err != nil {
		return err
	}

	if s.Email != nil && strings.TrimSpace(*s.Email) == "" {
		s.Email = nil
	}
	if s.Email != nil && !isValidEmail(*s.Email) {
		return fmt.Errorf("invalid business email format: %s", *s.Email)
	}

	for i, tn := range s.TaxNumbers {
		if strings.TrimSpace(tn.Label) == "" || strings.TrimSpace(tn.Value) == "" {
			return fmt.Errorf("tax number %d requires both label and value", i+1)
		}
	}

	return s.RawTaxSettings().Validate()
}

// RawTaxSettings returns the stored tax fields, before resolution
func (s *BusinessSettings) RawTaxSettings() RawTaxSettings {
	return RawTaxSettings{
		TaxRate:           s.TaxRate,
		FederalTaxRate:    s.FederalTaxRate,
		ProvincialTaxRate: s.ProvincialTaxRate,
	}
}

// SetRawTaxSettings replaces the stored tax fields
func (s *BusinessSettings) SetRawTaxSettings(raw RawTaxSettings) {
	s.TaxRate = raw.TaxRate
	s.FederalTaxRate = raw.FederalTaxRate
	s.ProvincialTaxRate = raw.ProvincialTaxRate
}

// BusinessInfo projects the identity fields printed on receipts
func (s *BusinessSettings) BusinessInfo() BusinessInfo {
	info := BusinessInfo{
		Name:       s.Name,
		Address:    s.Address,
		Phone:      s.Phone,
		TaxNumbers: append([]TaxNumber{}, s.TaxNumbers...),
	}
	if s.Email != nil {
		info.Email = *s.Email
	}
	return info
}

// UpdateTimestamp updates the UpdatedAt timestamp
func (s *BusinessSettings) UpdateTimestamp() {
	s.UpdatedAt = time.Now().UTC()
}

// GetFormattedAddress returns the address on a single line
func (b BusinessInfo) GetFormattedAddress() string {
	return strings.ReplaceAll(b.Address, "\n", ", ")
}

// Equal compares two identity blocks field by field
func (b BusinessInfo) Equal(other BusinessInfo) bool {
	if b.Name != other.Name || b.Address != other.Address || b.Phone != other.Phone || b.Email != other.Email {
		return false
	}
	if len(b.TaxNumbers) != len(other.TaxNumbers) {
		return false
	}
	for i := range b.TaxNumbers {
		if b.TaxNumbers[i] != other.TaxNumbers[i] {
			return false
		}
	}
	return true
}
