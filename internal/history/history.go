// ABOUTME: SQLite-backed ledger of completed remote commands
// ABOUTME: Append-only record of add/start/pause/remove with newest-first queries

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one completed remote command.
type Entry struct {
	ID        string
	Verb      string // "add", "start", "pause", "remove"
	ItemID    int64
	ItemName  string
	SourceURL string
	Category  string
	At        time.Time
}

// Ledger records completed commands in SQLite. Recording is best-effort
// from the caller's perspective: a ledger failure never blocks a user flow.
type Ledger struct {
	db *sql.DB
}

// Open creates (or opens) the ledger database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			verb TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			item_name TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_commands_at ON commands(at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Record appends one entry. A zero At is stamped with the current time; a
// missing ID gets a fresh one.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO commands (id, verb, item_id, item_name, source_url, category, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Verb, e.ItemID, e.ItemName, e.SourceURL, e.Category, e.At.UTC())
	if err != nil {
		return fmt.Errorf("recording command: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, verb, item_id, item_name, source_url, category, at
		 FROM commands ORDER BY at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Verb, &e.ItemID, &e.ItemName, &e.SourceURL, &e.Category, &e.At); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
