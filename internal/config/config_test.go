package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "./data/autoservice.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 42, cfg.Receipts.ThermalWidth)
	assert.Equal(t, 5*time.Second, cfg.Receipts.SnapshotWriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Settings.CacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Nil(t, cfg.Seed.Tax.TaxRate)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFrom_Overrides(t *testing.T) {
	v := newViper()
	v.Set("PORT", "9000")
	v.Set("STORAGE_TYPE", "Memory")
	v.Set("FEDERAL_TAX_RATE", "5")
	v.Set("PROVINCIAL_TAX_RATE", "9.975")
	v.Set("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	v.Set("SNAPSHOT_WRITE_TIMEOUT", "250ms")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	require.NotNil(t, cfg.Seed.Tax.FederalTaxRate)
	assert.Equal(t, "5", cfg.Seed.Tax.FederalTaxRate.String())
	assert.Equal(t, "9.975", cfg.Seed.Tax.ProvincialTaxRate.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Receipts.SnapshotWriteTimeout)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"seed rate above 100", "TAX_RATE", "150"},
		{"negative seed rate", "FEDERAL_TAX_RATE", "-1"},
		{"unparseable seed rate", "PROVINCIAL_TAX_RATE", "ten"},
		{"zero thermal width", "RECEIPT_THERMAL_WIDTH", 0},
		{"zero snapshot timeout", "SNAPSHOT_WRITE_TIMEOUT", "0s"},
		{"unknown storage", "STORAGE_TYPE", "s3"},
		{"empty db path", "DB_PATH", ""},
		{"auth without secret", "AUTH_ENABLED", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := LoadFrom(v)
			assert.Error(t, err)
		})
	}
}

func TestSeedSettings_BusinessSettings(t *testing.T) {
	v := newViper()
	v.Set("BUSINESS_NAME", "Northside Auto")
	v.Set("TAX_RATE", "14.975")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	settings := cfg.Seed.BusinessSettings()
	assert.Equal(t, "Northside Auto", settings.Name)
	require.NotNil(t, settings.TaxRate)
	assert.Equal(t, "14.975", settings.TaxRate.String())
	assert.NoError(t, settings.Validate())
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{Environment: "production", LogLevel: "debug"}
	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg = &Config{Environment: "development", LogLevel: "nonsense"}
	logger = cfg.NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestAdaptConfigForServerless(t *testing.T) {
	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	same := AdaptConfigForServerless(cfg, false)
	assert.Equal(t, "./data/autoservice.db", same.Database.Path)

	adapted := AdaptConfigForServerless(cfg, true)
	assert.Equal(t, "/tmp/autoservice.db", adapted.Database.Path)
	assert.Equal(t, "memory", adapted.Storage.Type)
	assert.False(t, adapted.Database.BackupEnabled)
	assert.True(t, adapted.Database.AutoMigrate)
	assert.False(t, adapted.Receipts.ArchiveEnabled)

	cfg.Database.Path = "/tmp/custom/app.db"
	assert.Equal(t, "/tmp/custom/app.db", AdaptConfigForServerless(cfg, true).Database.Path)
}

func TestDetectDeploymentMode(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	assert.Equal(t, ModeServer, DetectDeploymentMode())

	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "autoservice-pricing")
	assert.Equal(t, ModeServerless, DetectDeploymentMode())
}
