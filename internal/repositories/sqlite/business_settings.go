package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
)

var settingsID = strconv.Itoa(models.BusinessSettingsID)

// BusinessSettingsRepository implements repositories.BusinessSettingsRepository for SQLite
type BusinessSettingsRepository struct {
	baseRepository
}

// NewBusinessSettingsRepository creates a new SQLite business settings repository
func NewBusinessSettingsRepository(db *sql.DB, logger *logrus.Logger) *BusinessSettingsRepository {
	return &BusinessSettingsRepository{
		baseRepository: newBaseRepository(db, "business_settings", logger),
	}
}

// Get retrieves the business settings (singleton)
func (r *BusinessSettingsRepository) Get(ctx context.Context) (*models.BusinessSettings, error) {
	query := `
		SELECT id, name, address, phone, email, tax_numbers,
			   tax_rate, federal_tax_rate, provincial_tax_rate, updated_at
		FROM business_settings
		WHERE id = ?`

	var (
		settings   models.BusinessSettings
		email      sql.NullString
		taxNumbers string
		taxRate    decimal.NullDecimal
		federal    decimal.NullDecimal
		provincial decimal.NullDecimal
	)

	err := r.executeQueryRow(ctx, "get", query, models.BusinessSettingsID).Scan(
		&settings.ID,
		&settings.Name,
		&settings.Address,
		&settings.Phone,
		&email,
		&taxNumbers,
		&taxRate,
		&federal,
		&provincial,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.NotFoundError(repositories.EntityBusinessSettings, settingsID)
		}
		return nil, repositories.NewRepositoryError("get", r.table, settingsID, err)
	}

	settings.Email = stringPtr(email)
	settings.TaxRate = decimalPtr(taxRate)
	settings.FederalTaxRate = decimalPtr(federal)
	settings.ProvincialTaxRate = decimalPtr(provincial)

	settings.TaxNumbers = []models.TaxNumber{}
	if taxNumbers != "" {
		if err := json.Unmarshal([]byte(taxNumbers), &settings.TaxNumbers); err != nil {
			return nil, repositories.CorruptRowError(repositories.EntityBusinessSettings, settingsID, err)
		}
	}

	return &settings, nil
}

// CreateOrUpdate updates the settings row, inserting it when it does not exist yet
func (r *BusinessSettingsRepository) CreateOrUpdate(ctx context.Context, settings *models.BusinessSettings) error {
	settings.ID = models.BusinessSettingsID
	if err := settings.Validate(); err != nil {
		return repositories.ValidationError(repositories.EntityBusinessSettings, settingsID, err)
	}
	settings.UpdateTimestamp()

	if settings.TaxNumbers == nil {
		settings.TaxNumbers = []models.TaxNumber{}
	}
	taxNumbers, err := json.Marshal(settings.TaxNumbers)
	if err != nil {
		return repositories.NewRepositoryError("update", r.table, settingsID, err)
	}

	args := []interface{}{
		settings.Name,
		settings.Address,
		settings.Phone,
		nullableString(settings.Email),
		string(taxNumbers),
		nullableDecimal(settings.TaxRate),
		nullableDecimal(settings.FederalTaxRate),
		nullableDecimal(settings.ProvincialTaxRate),
		settings.UpdatedAt,
	}

	return runInTx(ctx, r.db, r.logger, func(ctx context.Context) error {
		updateQuery := `
			UPDATE business_settings
			SET name = ?, address = ?, phone = ?, email = ?, tax_numbers = ?,
				tax_rate = ?, federal_tax_rate = ?, provincial_tax_rate = ?, updated_at = ?
			WHERE id = 1`

		result, err := r.executeExec(ctx, "update", updateQuery, args...)
		if err != nil {
			return repositories.NewRepositoryError("update", r.table, settingsID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return repositories.NewRepositoryError("update", r.table, settingsID, err)
		}
		if rowsAffected > 0 {
			return nil
		}

		insertQuery := `
			INSERT INTO business_settings (
				id, name, address, phone, email, tax_numbers,
				tax_rate, federal_tax_rate, provincial_tax_rate, updated_at
			) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		if _, err := r.executeExec(ctx, "create", insertQuery, args...); err != nil {
			return r.writeError("create", settingsID, err)
		}

		r.logger.Info("Business settings created")
		return nil
	})
}

// Exists checks if the settings row exists
func (r *BusinessSettingsRepository) Exists(ctx context.Context) (bool, error) {
	return r.exists(ctx, settingsID)
}
