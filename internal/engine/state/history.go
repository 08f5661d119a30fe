// Package state persists completed sessions to a local SQLite database
// so earlier runs can be reviewed from the CLI.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scour-dl/scour/internal/engine/types"
)

// History is the on-disk record of past sessions.
type History struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_url   TEXT NOT NULL,
	site        TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	discovered  INTEGER NOT NULL,
	completed   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	cancelled   INTEGER NOT NULL,
	bytes       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
	session_id  INTEGER NOT NULL REFERENCES sessions(id),
	source_url  TEXT NOT NULL,
	dest_path   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	state       TEXT NOT NULL,
	bytes       INTEGER NOT NULL,
	attempts    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS files_session ON files(session_id);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// RecordSession stores a finished session and its per-file outcomes.
func (h *History) RecordSession(sum types.Summary, tasks []*types.MediaTask) error {
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO sessions
		(entry_url, site, started_at, elapsed_ms, discovered, completed, failed, skipped, cancelled, bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.EntryURL, sum.Site.String(), sum.StartedAt, sum.Elapsed.Milliseconds(),
		sum.Discovered, sum.Completed, sum.Failed, sum.Skipped, sum.Cancelled, sum.Bytes)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO files
		(session_id, source_url, dest_path, kind, state, bytes, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tasks {
		_, err := stmt.Exec(id, t.SourceURL, t.DestPath, t.Kind.String(),
			t.State().String(), t.BytesDone.Load(), t.Attempts.Load())
		if err != nil {
			return fmt.Errorf("record file: %w", err)
		}
	}
	return tx.Commit()
}

// SessionRow is one row of the sessions listing.
type SessionRow struct {
	ID         int64
	EntryURL   string
	Site       string
	StartedAt  time.Time
	Elapsed    time.Duration
	Discovered int64
	Completed  int64
	Failed     int64
	Skipped    int64
	Cancelled  int64
	Bytes      int64
}

// ListSessions returns the most recent sessions, newest first.
func (h *History) ListSessions(limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(`SELECT id, entry_url, site, started_at, elapsed_ms,
		discovered, completed, failed, skipped, cancelled, bytes
		FROM sessions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var elapsedMS int64
		if err := rows.Scan(&r.ID, &r.EntryURL, &r.Site, &r.StartedAt, &elapsedMS,
			&r.Discovered, &r.Completed, &r.Failed, &r.Skipped, &r.Cancelled, &r.Bytes); err != nil {
			return nil, err
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
