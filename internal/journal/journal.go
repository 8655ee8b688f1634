// Package journal persists processing outcomes in SQLite. The journal is the
// engine's recovery surface: generated text is recorded even when the vault
// write fails, so no LLM output is silently lost, and the checksum of the
// content each run produced lets the engine ignore change events caused by
// its own writes.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS results (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	note_path  TEXT NOT NULL,
	operation  TEXT NOT NULL,
	status     TEXT NOT NULL,
	checksum   TEXT NOT NULL DEFAULT '',
	output     TEXT NOT NULL DEFAULT '',
	target     TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_results_note ON results(note_path, operation, id);
`

// Entry statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Entry is one recorded processing outcome.
type Entry struct {
	ID        int64     `json:"id"`
	NotePath  string    `json:"note_path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	// Checksum is the digest of the note content after the run: the
	// post-write content on success, the observed content otherwise.
	Checksum  string    `json:"checksum,omitempty"`
	Output    string    `json:"output,omitempty"`
	Target    string    `json:"target,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record appends an entry. CreatedAt is assigned here when zero.
func (db *DB) Record(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO results (note_path, operation, status, checksum, output, target, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.NotePath, e.Operation, e.Status, e.Checksum, e.Output, e.Target, e.Error, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// LastChecksum returns the checksum recorded by the most recent completed
// run for the note, or empty string when the note has never completed.
func (db *DB) LastChecksum(notePath string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`
		SELECT checksum FROM results
		WHERE note_path = ? AND status = ?
		ORDER BY id DESC LIMIT 1
	`, notePath, StatusCompleted).Scan(&cs)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("journal: last checksum: %w", err)
	}
	return cs, nil
}

// Recent returns the newest entries, most recent first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, note_path, operation, status, checksum, output, target, error, created_at
		FROM results ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.NotePath, &e.Operation, &e.Status, &e.Checksum,
			&e.Output, &e.Target, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
