package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *ConnectionConfig {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := DefaultConnectionConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "nested", "test.db")
	cfg.Logger = logger
	return cfg
}

func TestConnectionManager_ConnectMigratesSchema(t *testing.T) {
	cm := NewConnectionManager(testConfig(t))
	require.NoError(t, cm.Connect())
	defer cm.Close()

	ctx := context.Background()
	require.NoError(t, cm.HealthCheck(ctx))

	mm := cm.GetMigrationManager()
	require.NotNil(t, mm)
	require.NoError(t, mm.ValidateSchema())

	status, err := mm.GetMigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	assert.False(t, status.Dirty)
	assert.True(t, status.Applied)
}

func TestConnectionManager_ConnectTwice(t *testing.T) {
	cm := NewConnectionManager(testConfig(t))
	require.NoError(t, cm.Connect())
	defer cm.Close()

	assert.Error(t, cm.Connect())
}

func TestConnectionManager_PingWithoutConnect(t *testing.T) {
	cm := NewConnectionManager(testConfig(t))

	assert.Error(t, cm.Ping(context.Background()))
	assert.Nil(t, cm.GetMigrationManager())
	assert.NoError(t, cm.Close())
}

func TestMigrationManager_RunMigrationsIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cm := NewConnectionManager(cfg)
	require.NoError(t, cm.Connect())
	defer cm.Close()

	mm := cm.GetMigrationManager()
	require.NoError(t, mm.RunMigrations())
	require.NoError(t, mm.RunMigrations())
	require.NoError(t, mm.ValidateSchema())
}

func TestMigrationManager_Rollback(t *testing.T) {
	cm := NewConnectionManager(testConfig(t))
	require.NoError(t, cm.Connect())
	defer cm.Close()

	mm := cm.GetMigrationManager()
	require.NoError(t, mm.RollbackMigration())
	assert.Error(t, mm.ValidateSchema())

	assert.Error(t, mm.RollbackMigration(), "nothing left to roll back")

	require.NoError(t, mm.RunMigrations())
	assert.NoError(t, mm.ValidateSchema())
}
