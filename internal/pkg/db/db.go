// Package db provides ledger database connection management.
// SQLite is the default file-backed store; PostgreSQL is available through pgx.
package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
)

// DB wraps sqlx.DB with additional functionality.
type DB struct {
	*sqlx.DB
}

// Open opens and verifies a connection pool for the configured driver.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	configurePool(conn, cfg)

	logEvent := log.Info().Str("driver", cfg.Driver)
	if cfg.Driver == config.DriverSQLite {
		logEvent = logEvent.Str("path", cfg.Path)
	} else {
		logEvent = logEvent.
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Str("database", cfg.Name).
			Int("pool_size", cfg.PoolSize)
	}
	logEvent.Msg("Connecting to ledger database")

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to ledger database")

	return &DB{DB: conn}, nil
}

// configurePool applies pool settings. SQLite is single-writer, so it gets
// exactly one connection; this also keeps in-memory databases coherent.
func configurePool(conn *sqlx.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == config.DriverSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
		return
	}

	poolSize := cfg.PoolSize
	if poolSize < 1 {
		poolSize = 10
	}
	conn.SetMaxOpenConns(poolSize)
	conn.SetMaxIdleConns(max(poolSize/4, 1))

	if cfg.MaxConnLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.MaxConnLifetime)
	} else {
		conn.SetConnMaxLifetime(time.Hour)
	}

	if cfg.MaxConnIdleTime > 0 {
		conn.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	} else {
		conn.SetConnMaxIdleTime(30 * time.Minute)
	}
}

// Close closes the connection pool.
func (d *DB) Close() error {
	if d.DB == nil {
		return nil
	}
	err := d.DB.Close()
	log.Info().Msg("Ledger database connection closed")
	return err
}

// HealthCheck performs a health check on the database connection.
func (d *DB) HealthCheck(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}
