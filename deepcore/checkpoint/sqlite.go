package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id     TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteStore persists checkpoints in a local SQLite database. State is
// stored as one JSON document per run.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes if needed) a checkpoint database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, runID string, state map[string]any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (run_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		runID, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, runID string) (map[string]any, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM pipeline_runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var state map[string]any
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint for run %s: %w", runID, err)
	}
	return state, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_runs WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM pipeline_runs ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
