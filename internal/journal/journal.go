// Package journal records embed and extract operations in a local SQLite
// database so batch runs can be audited later. Recording is best-effort
// and never stores payloads or secrets, only carrier metadata.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the pnger operation journal.
const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    kind            TEXT NOT NULL,
    carrier_path    TEXT NOT NULL,
    carrier_bytes   INTEGER NOT NULL,
    payload_bytes   INTEGER NOT NULL,
    pattern         TEXT NOT NULL,
    bit_index       INTEGER NOT NULL,
    seed_source     TEXT NOT NULL,
    obfuscated      INTEGER NOT NULL,
    timestamp_ns    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_timestamp ON operations(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_operations_carrier ON operations(carrier_path, timestamp_ns);
`

// Entry is one recorded operation.
type Entry struct {
	ID           int64
	Kind         string // "embed" or "extract"
	CarrierPath  string
	CarrierBytes int
	PayloadBytes int
	Pattern      string
	BitIndex     int
	SeedSource   string
	Obfuscated   bool
	TimestampNs  int64
}

// Journal is the SQLite-backed operation log.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at the given path.
func Open(path string, busyTimeoutMs int) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, busyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record inserts an operation entry and returns its ID. A zero TimestampNs
// is filled with the current time.
func (j *Journal) Record(e *Entry) (int64, error) {
	if e.TimestampNs == 0 {
		e.TimestampNs = time.Now().UnixNano()
	}

	result, err := j.db.Exec(`
		INSERT INTO operations (kind, carrier_path, carrier_bytes, payload_bytes, pattern, bit_index, seed_source, obfuscated, timestamp_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.CarrierPath, e.CarrierBytes, e.PayloadBytes, e.Pattern, e.BitIndex, e.SeedSource, e.Obfuscated, e.TimestampNs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert operation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id
	return id, nil
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, kind, carrier_path, carrier_bytes, payload_bytes, pattern, bit_index, seed_source, obfuscated, timestamp_ns
		FROM operations ORDER BY timestamp_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.CarrierPath, &e.CarrierBytes, &e.PayloadBytes,
			&e.Pattern, &e.BitIndex, &e.SeedSource, &e.Obfuscated, &e.TimestampNs); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return entries, nil
}

// ByCarrier returns all entries recorded for a carrier path, newest first.
func (j *Journal) ByCarrier(path string) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, kind, carrier_path, carrier_bytes, payload_bytes, pattern, bit_index, seed_source, obfuscated, timestamp_ns
		FROM operations WHERE carrier_path = ? ORDER BY timestamp_ns DESC`, path)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.CarrierPath, &e.CarrierBytes, &e.PayloadBytes,
			&e.Pattern, &e.BitIndex, &e.SeedSource, &e.Obfuscated, &e.TimestampNs); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return entries, nil
}

// Count returns the total number of recorded operations.
func (j *Journal) Count() (int64, error) {
	var n int64
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}
