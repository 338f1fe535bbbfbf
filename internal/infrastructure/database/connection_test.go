package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/internal/config"
)

func TestOpen_SQLiteAndMigrate(t *testing.T) {
	conn, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Migrate())

	version, err := conn.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// running twice is a no-op
	require.NoError(t, conn.Migrate())

	var n int
	require.NoError(t, conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM ivr_flows").Scan(&n))
	assert.Zero(t, n)
	assert.Equal(t, config.DriverSQLite, conn.Driver())
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.db")
	conn, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
	require.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, conn.PingContext(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(config.DatabaseConfig{Host: "127.0.0.1", Port: 4000, User: "root", Password: "pw", Name: "nexora"})
	assert.Equal(t, "root:pw@tcp(127.0.0.1:4000)/nexora?charset=utf8mb4&parseTime=True&loc=Local", dsn)

	remote := mysqlDSN(config.DatabaseConfig{Host: "gateway.tidbcloud.com", Port: 4000, User: "u", Name: "n"})
	assert.Contains(t, remote, "&tls=nexora")
}
