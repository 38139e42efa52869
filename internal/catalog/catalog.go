// Package catalog implements the durable catalog: sessions, chunks,
// and frames tables over a local SQLite file, with forward-only schema
// evolution and the single place offset_index is assigned.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/omegalabsinc/screenrecorder/internal/logging"
)

var log = logging.L("catalog")

// Catalog wraps a SQLite connection pool for the recorder's durable state.
type Catalog struct {
	db *sql.DB
}

// Open creates the database file (and its parent directory) if missing,
// opens a connection pool, and runs idempotent migrations.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under the append-heavy
	// access pattern of the encoder and lifecycle controller calling in from
	// different goroutines; readers share it, serialized by database/sql.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: enable foreign keys: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("catalog opened", "path", path)
	return c, nil
}

// Close releases the underlying connection pool.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Checkpoint forces a durable flush of the WAL so late writes (in
// particular a session's ended_at) are visible to any other connection
// before manifest computation reads them.
func (c *Catalog) Checkpoint() error {
	if _, err := c.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("catalog: checkpoint: %w", err)
	}
	return nil
}
