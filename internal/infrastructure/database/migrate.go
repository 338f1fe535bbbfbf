package database

import (
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/nexora/backend/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func gooseDialect(driver string) (string, error) {
	switch driver {
	case config.DriverMySQL:
		return "mysql", nil
	case config.DriverSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("no migration dialect for driver %q", driver)
}

func prepareGoose(driver string) error {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate runs all pending migrations.
func (c *Connection) Migrate() error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(c.driver); err != nil {
		return err
	}
	if err := goose.Up(c.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied schema version.
func (c *Connection) MigrationVersion() (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(c.driver); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(c.db)
}
