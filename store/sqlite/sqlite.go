// Package sqlite provides a SQLite backed TaskStore using modernc.org/sqlite
// (pure Go, no cgo). It keeps the same whole-state read/rewrite contract as
// the file store but performs each Save inside a real transaction, making it
// the preferred backend when many orchestrator handles share one database.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/taskmesh/core"
)

// Store implements core.TaskStore on a single SQLite table. Each task row
// carries the full JSON record so the schema never lags the task shape.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and prepares the schema.
// Parent directories are created if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Single writer keeps Save transactions from tripping over each other.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			record  TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Load returns the full task collection keyed by task id.
func (s *Store) Load() (map[string]core.Task, error) {
	rows, err := s.db.Query("SELECT task_id, record FROM tasks")
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	defer rows.Close()

	tasks := map[string]core.Task{}
	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		var task core.Task
		if err := json.Unmarshal([]byte(record), &task); err != nil {
			return nil, fmt.Errorf("decoding task %s: %w", id, err)
		}
		tasks[id] = task
	}
	return tasks, rows.Err()
}

// Save rewrites the full collection inside one transaction, preserving the
// all-or-nothing semantics the file store gets from its rename.
func (s *Store) Save(tasks map[string]core.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO tasks (task_id, record) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for id, task := range tasks {
		record, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("encoding task %s: %w", id, err)
		}
		if _, err := stmt.Exec(id, string(record)); err != nil {
			return fmt.Errorf("inserting task %s: %w", id, err)
		}
	}
	return tx.Commit()
}
