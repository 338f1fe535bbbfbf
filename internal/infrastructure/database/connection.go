package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/nexora/backend/internal/config"
)

// Connection wraps the flow store's *sql.DB.
// sql.DB is already safe for concurrent use and pools its own connections,
// so no extra locking is layered on top.
type Connection struct {
	db     *sql.DB
	driver string
}

var tlsOnce sync.Once

// Open connects to the configured driver and pings the server.
func Open(cfg config.DatabaseConfig) (*Connection, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case config.DriverMySQL:
		db, err = sql.Open("mysql", mysqlDSN(cfg))
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", sqliteDSN(cfg.Path))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// One writer; a pooled :memory: database would also split per connection.
		db.SetMaxOpenConns(1)
	} else {
		// Idle must equal open, otherwise connections churn under load.
		maxConns := cfg.MaxOpenConns
		if maxConns <= 0 {
			maxConns = 25
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(3 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{db: db, driver: cfg.Driver}, nil
}

// NewConnection wraps an already opened handle, e.g. a sqlmock database.
func NewConnection(db *sql.DB, driver string) *Connection {
	return &Connection{db: db, driver: driver}
}

func mysqlDSN(cfg config.DatabaseConfig) string {
	tlsParam := ""
	if cfg.Host != "" && cfg.Host != "127.0.0.1" && cfg.Host != "localhost" {
		// Remote servers (TiDB Cloud and friends) need TLS with a ServerName.
		tlsOnce.Do(func() {
			if err := mysql.RegisterTLSConfig("nexora", &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: cfg.Host,
			}); err != nil {
				log.Printf("⚠️  Failed to register TLS config: %v", err)
			}
		})
		tlsParam = "&tls=nexora"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, tlsParam)
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Connection) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, opts)
}

// PingContext is used by the health endpoint.
func (c *Connection) PingContext(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying handle for goose and tests.
func (c *Connection) DB() *sql.DB {
	return c.db
}

func (c *Connection) Driver() string {
	return c.driver
}

func (c *Connection) Close() error {
	return c.db.Close()
}
