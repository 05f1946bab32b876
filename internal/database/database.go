// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/logging"
)

// Mode selects how the database file is opened.
type Mode int

const (
	// ReadWrite is used by create-db, extract and transform.
	ReadWrite Mode = iota
	// ReadOnly is used by the query API so it can never modify the file.
	ReadOnly
)

func (m Mode) String() string {
	if m == ReadOnly {
		return "read_only"
	}
	return "read_write"
}

// DB wraps a DuckDB database file. The connector is shared so that appender
// connections and database/sql operate on the same database instance.
// Closing conn also closes the connector.
type DB struct {
	conn      *sql.DB
	connector *duckdb.Connector
	cfg       *config.DatabaseConfig
	mode      Mode
}

// open connects to cfg.Path without any existence checks.
func open(cfg *config.DatabaseConfig, mode Mode) (*DB, error) {
	connector, err := duckdb.NewConnector(dsn(cfg, mode), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}

	db := &DB{
		conn:      sql.OpenDB(connector),
		connector: connector,
		cfg:       cfg,
		mode:      mode,
	}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		closeQuietly(db.conn) // also closes the connector
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Path, err)
	}

	logging.Debug().
		Str("path", cfg.Path).
		Str("mode", mode.String()).
		Msg("Database opened")
	return db, nil
}

// dsn builds the DuckDB connection string with tuning options.
func dsn(cfg *config.DatabaseConfig, mode Mode) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	q := url.Values{}
	q.Set("access_mode", mode.String())
	q.Set("threads", fmt.Sprint(threads))
	if cfg.MaxMemory != "" {
		q.Set("max_memory", cfg.MaxMemory)
	}
	return cfg.Path + "?" + q.Encode()
}

// configureConnectionPool sizes the database/sql pool. DuckDB runs in
// process, so idle connections cost only memory.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Close checkpoints a writable database and releases the file.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	if db.mode == ReadWrite {
		if err := db.Checkpoint(context.Background()); err != nil {
			logging.Warn().Err(err).Str("path", db.cfg.Path).Msg("Checkpoint before close failed")
		}
	}
	err := db.conn.Close()
	db.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Conn returns the underlying database/sql handle.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.cfg.Path
}

// Mode returns how the database was opened.
func (db *DB) Mode() Mode {
	return db.mode
}
