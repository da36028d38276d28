// Package history provides SQLite-backed persistence of sync pass outcomes,
// feeding the status API. The sync ledger itself is deliberately not stored
// here; it is in-memory only and resets on restart.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/gebo/internal/engine"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS passes (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     DATETIME NOT NULL,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	pushed         INTEGER NOT NULL DEFAULT 0,
	pulled         INTEGER NOT NULL DEFAULT 0,
	created_remote INTEGER NOT NULL DEFAULT 0,
	created_local  INTEGER NOT NULL DEFAULT 0,
	unlinked       INTEGER NOT NULL DEFAULT 0,
	skipped        INTEGER NOT NULL DEFAULT 0,
	failures       INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started_at);
`

// Store wraps a sql.DB with pass-history operations.
type Store struct {
	conn *sql.DB
}

// Pass is one recorded sync pass.
type Pass struct {
	ID            int64         `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Pushed        int           `json:"pushed"`
	Pulled        int           `json:"pulled"`
	CreatedRemote int           `json:"created_remote"`
	CreatedLocal  int           `json:"created_local"`
	Unlinked      int           `json:"unlinked"`
	Skipped       int           `json:"skipped"`
	Failures      int           `json:"failures"`
	Error         string        `json:"error,omitempty"`
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record stores the outcome of one pass. A pass that failed outright has
// its error message stored alongside whatever counters it accumulated.
func (s *Store) Record(rep engine.Report, passErr error) error {
	msg := ""
	if passErr != nil {
		msg = passErr.Error()
	}
	_, err := s.conn.Exec(`
		INSERT INTO passes (started_at, duration_ms, pushed, pulled,
			created_remote, created_local, unlinked, skipped, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rep.Started, rep.Duration.Milliseconds(), rep.Pushed, rep.Pulled,
		rep.CreatedRemote, rep.CreatedLocal, rep.Unlinked, rep.Skipped,
		rep.Failures, msg)
	if err != nil {
		return fmt.Errorf("history: record pass: %w", err)
	}
	return nil
}

// Recent returns the n most recent passes, newest first.
func (s *Store) Recent(n int) ([]Pass, error) {
	rows, err := s.conn.Query(`
		SELECT id, started_at, duration_ms, pushed, pulled,
			created_remote, created_local, unlinked, skipped, failures, error
		FROM passes ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Pass
	for rows.Next() {
		var p Pass
		var ms int64
		if err := rows.Scan(&p.ID, &p.StartedAt, &ms, &p.Pushed, &p.Pulled,
			&p.CreatedRemote, &p.CreatedLocal, &p.Unlinked, &p.Skipped,
			&p.Failures, &p.Error); err != nil {
			return nil, fmt.Errorf("history: scan pass: %w", err)
		}
		p.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, p)
	}
	return out, rows.Err()
}
