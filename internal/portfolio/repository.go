package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/proingenius/aria-banking/internal/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// Search limits.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// Repository is the read model the assistant queries.
type Repository interface {
	GeneralStats(ctx context.Context) (GeneralStats, error)
	SearchClients(ctx context.Context, criteria Criteria) ([]ClientSummary, error)
	Segment(ctx context.Context, groupBy GroupBy) ([]Segment, error)
	ProductAnalysis(ctx context.Context) (ProductAnalysis, error)
	ClientByID(ctx context.Context, clienteID string) (Client, error)
}

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Open opens and pings the configured SQL database.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		driverName, dsn = "sqlite3", cfg.SQLite.Path
	case config.DriverPostgres:
		driverName, dsn = "postgres", cfg.Postgres.DSN
	default:
		return nil, fmt.Errorf("driver %q has no sql database", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverPostgres {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	} else {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return db, nil
}

// clampLimit applies the search default and bounds.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	}
	return limit
}
