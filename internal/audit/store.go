// Package audit keeps an append-only journal of tool invocations in a
// local sqlite database. Only metadata is stored: tool name, status, and
// timing. Draft bodies and translations never touch disk.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mktr-labs/tooldeck/internal/tools"
)

// Entry is one journaled invocation.
type Entry struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Status    string    `json:"status"`
	ElapsedMs int64     `json:"elapsed_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the sqlite-backed journal.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the journal database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	// WAL mode for concurrent reads while the server appends
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit wal mode: %w", err)
	}

	s := &Store{db: db, logger: logger.With("component", "audit")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS invocations (
		id         TEXT PRIMARY KEY,
		tool       TEXT NOT NULL,
		status     TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	return err
}

// Record appends one invocation. Journal failures are logged, never
// surfaced: auditing must not break a tool call that already completed.
func (s *Store) Record(ctx context.Context, inv tools.Invocation) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO invocations (id, tool, status, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		inv.ID, inv.Tool, inv.Status, inv.ElapsedMs, inv.When,
	)
	if err != nil {
		s.logger.Warn("failed to journal invocation", "id", inv.ID, "error", err)
	}
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, status, elapsed_ms, created_at
		 FROM invocations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Tool, &e.Status, &e.ElapsedMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
