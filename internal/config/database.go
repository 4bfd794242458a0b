package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"autoservice-billing-api/internal/database"
)

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	BackupEnabled   bool
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("DB_PATH", "./data/autoservice.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_BACKUP_ENABLED", false)
}

func loadDatabaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Path:            v.GetString("DB_PATH"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		BackupEnabled:   v.GetBool("DB_BACKUP_ENABLED"),
	}
}

// Validate validates the database configuration
func (c *DatabaseConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be at least 1")
	}

	if c.MaxIdleConns < 1 {
		return fmt.Errorf("max idle connections must be at least 1")
	}

	if c.ConnMaxLifetime < time.Minute {
		return fmt.Errorf("connection max lifetime must be at least 1 minute")
	}

	return nil
}

// ToConnectionConfig converts DatabaseConfig to database.ConnectionConfig
func (c *DatabaseConfig) ToConnectionConfig(logger *logrus.Logger) *database.ConnectionConfig {
	return &database.ConnectionConfig{
		DatabasePath:        c.Path,
		MaxOpenConns:        c.MaxOpenConns,
		MaxIdleConns:        c.MaxIdleConns,
		ConnMaxLifetime:     c.ConnMaxLifetime,
		AutoMigrate:         c.AutoMigrate,
		BackupBeforeMigrate: c.BackupEnabled,
		Logger:              logger,
	}
}
