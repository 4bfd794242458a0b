package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	Database    DatabaseConfig
	Storage     StorageConfig
	Receipts    ReceiptConfig
	Settings    SettingsConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Seed        SeedSettings
}

// StorageConfig holds rendered receipt archive configuration
type StorageConfig struct {
	Type      string // "local" or "memory"
	LocalPath string
}

// ReceiptConfig holds receipt rendering configuration
type ReceiptConfig struct {
	ArchiveEnabled       bool
	ThermalWidth         int
	SnapshotWriteTimeout time.Duration
}

// SettingsConfig holds business settings caching configuration
type SettingsConfig struct {
	CacheTTL time.Duration
}

// AuthConfig holds JWT configuration for the destructive endpoints
type AuthConfig struct {
	Enabled bool
	Secret  string
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// CORSConfig holds cross-origin configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from the environment, reading a .env file first when present
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(newViper())
}

// LoadFrom builds the configuration from an already populated viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	seed, err := loadSeedSettings(v)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Database:    loadDatabaseConfig(v),
		Storage: StorageConfig{
			Type:      strings.ToLower(v.GetString("STORAGE_TYPE")),
			LocalPath: v.GetString("STORAGE_LOCAL_PATH"),
		},
		Receipts: ReceiptConfig{
			ArchiveEnabled:       v.GetBool("RECEIPT_ARCHIVE_ENABLED"),
			ThermalWidth:         v.GetInt("RECEIPT_THERMAL_WIDTH"),
			SnapshotWriteTimeout: v.GetDuration("SNAPSHOT_WRITE_TIMEOUT"),
		},
		Settings: SettingsConfig{
			CacheTTL: v.GetDuration("SETTINGS_CACHE_TTL"),
		},
		Auth: AuthConfig{
			Enabled: v.GetBool("AUTH_ENABLED"),
			Secret:  v.GetString("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Seed: seed,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./data/receipts")
	v.SetDefault("RECEIPT_ARCHIVE_ENABLED", false)
	v.SetDefault("RECEIPT_THERMAL_WIDTH", 42)
	v.SetDefault("SNAPSHOT_WRITE_TIMEOUT", "5s")
	v.SetDefault("SETTINGS_CACHE_TTL", "30s")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("BUSINESS_NAME", "Auto Service")
	setDatabaseDefaults(v)

	return v
}

// Validate checks ranges and required values
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("STORAGE_LOCAL_PATH is required for local storage")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q (want local or memory)", c.Storage.Type)
	}

	if c.Receipts.ThermalWidth <= 0 {
		return fmt.Errorf("RECEIPT_THERMAL_WIDTH must be positive, got %d", c.Receipts.ThermalWidth)
	}
	if c.Receipts.SnapshotWriteTimeout <= 0 {
		return fmt.Errorf("SNAPSHOT_WRITE_TIMEOUT must be positive, got %s", c.Receipts.SnapshotWriteTimeout)
	}
	if c.Settings.CacheTTL < 0 {
		return fmt.Errorf("SETTINGS_CACHE_TTL cannot be negative, got %s", c.Settings.CacheTTL)
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is true")
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}

	return c.Seed.Validate()
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// NewLogger builds the application logger: JSON in production, text elsewhere
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		logger.WithField("log_level", c.LogLevel).Warn("Unknown log level, using info")
	}
	logger.SetLevel(level)

	return logger
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsBool gets an environment variable as boolean with a fallback value
func GetEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
