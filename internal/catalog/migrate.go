package catalog

import (
	"database/sql"
	"fmt"
)

// columnDef is one column this version of the schema expects to exist.
type columnDef struct {
	name    string
	sqlType string
	// defaultExpr is the literal used in ALTER TABLE ... ADD COLUMN when
	// the column is missing from an older database.
	defaultExpr string
}

// tableSchema is a table's full desired column set. Migration only ever
// adds missing columns; it never drops or renames one.
type tableSchema struct {
	name    string
	create  string
	columns []columnDef
	indexes []string
}

var schemas = []tableSchema{
	{
		name: "sessions",
		create: `CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT,
			device_name TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT
		)`,
		columns: []columnDef{
			{name: "task_id", sqlType: "TEXT"},
			{name: "device_name", sqlType: "TEXT NOT NULL", defaultExpr: "''"},
			{name: "started_at", sqlType: "TEXT NOT NULL", defaultExpr: "''"},
			{name: "ended_at", sqlType: "TEXT"},
		},
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_sessions_task_id ON sessions(task_id)`,
		},
	},
	{
		name: "chunks",
		create: `CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER,
			file_path TEXT NOT NULL,
			device_name TEXT NOT NULL,
			recording_type TEXT,
			task_id TEXT,
			chunk_index INTEGER NOT NULL DEFAULT 0,
			fps INTEGER,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
		columns: []columnDef{
			{name: "session_id", sqlType: "INTEGER"},
			{name: "file_path", sqlType: "TEXT NOT NULL", defaultExpr: "''"},
			{name: "device_name", sqlType: "TEXT NOT NULL", defaultExpr: "''"},
			{name: "recording_type", sqlType: "TEXT"},
			{name: "task_id", sqlType: "TEXT"},
			{name: "chunk_index", sqlType: "INTEGER NOT NULL DEFAULT 0", defaultExpr: "0"},
			{name: "fps", sqlType: "INTEGER"},
			{name: "created_at", sqlType: "TEXT NOT NULL", defaultExpr: "strftime('%Y-%m-%dT%H:%M:%fZ','now')"},
		},
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_chunks_task_id ON chunks(task_id)`,
			`CREATE INDEX IF NOT EXISTS idx_chunks_device_name ON chunks(device_name)`,
		},
	},
	{
		name: "frames",
		create: `CREATE TABLE IF NOT EXISTS frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			video_chunk_id INTEGER NOT NULL,
			device_name TEXT NOT NULL,
			offset_index INTEGER NOT NULL,
			captured_at TEXT,
			is_keyframe INTEGER NOT NULL DEFAULT 0,
			pts INTEGER,
			dts INTEGER,
			display_index INTEGER,
			display_width INTEGER,
			display_height INTEGER
		)`,
		columns: []columnDef{
			{name: "video_chunk_id", sqlType: "INTEGER NOT NULL", defaultExpr: "0"},
			{name: "device_name", sqlType: "TEXT NOT NULL", defaultExpr: "''"},
			{name: "offset_index", sqlType: "INTEGER NOT NULL", defaultExpr: "0"},
			{name: "captured_at", sqlType: "TEXT"},
			{name: "is_keyframe", sqlType: "INTEGER NOT NULL DEFAULT 0", defaultExpr: "0"},
			{name: "pts", sqlType: "INTEGER"},
			{name: "dts", sqlType: "INTEGER"},
			{name: "display_index", sqlType: "INTEGER"},
			{name: "display_width", sqlType: "INTEGER"},
			{name: "display_height", sqlType: "INTEGER"},
		},
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_frames_video_chunk_id ON frames(video_chunk_id)`,
			`CREATE INDEX IF NOT EXISTS idx_frames_keyframe ON frames(video_chunk_id) WHERE is_keyframe = 1`,
		},
	},
}

// migrate creates any missing table from scratch, then reconciles existing
// tables by adding any column present in the schema but absent from
// PRAGMA table_info — it never drops or renames a column.
func (c *Catalog) migrate() error {
	for _, schema := range schemas {
		if _, err := c.db.Exec(schema.create); err != nil {
			return fmt.Errorf("catalog: create table %s: %w", schema.name, err)
		}
		if err := c.reconcileColumns(schema); err != nil {
			return err
		}
		for _, idx := range schema.indexes {
			if _, err := c.db.Exec(idx); err != nil {
				return fmt.Errorf("catalog: create index on %s: %w", schema.name, err)
			}
		}
	}
	return nil
}

func (c *Catalog) reconcileColumns(schema tableSchema) error {
	existing, err := c.existingColumns(schema.name)
	if err != nil {
		return err
	}
	for _, col := range schema.columns {
		if existing[col.name] {
			continue
		}
		def := col.sqlType
		if col.defaultExpr != "" {
			def = fmt.Sprintf("%s DEFAULT %s", col.sqlType, col.defaultExpr)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", schema.name, col.name, def)
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("catalog: add column %s.%s: %w", schema.name, col.name, err)
		}
		log.Info("catalog schema migrated", "table", schema.name, "column", col.name)
	}
	return nil
}

func (c *Catalog) existingColumns(table string) (map[string]bool, error) {
	rows, err := c.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("catalog: table_info(%s): %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("catalog: scan table_info row: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
