package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coreagenda/workflow/workflow"
	_ "modernc.org/sqlite"
)

// SQLiteRepository is a SQLite-backed Repository: a single-file database
// with WAL mode for concurrent reads and auto-migration on first use.
type SQLiteRepository struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewSQLiteRepository opens (creating if necessary) a SQLite database at
// path and migrates its schema. Pass ":memory:" for a throwaway database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}

	repo := &SQLiteRepository{db: db, path: path}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return repo, nil
}

func (s *SQLiteRepository) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS workflow_instances (
			id TEXT PRIMARY KEY,
			definition_name TEXT NOT NULL,
			current_step TEXT NOT NULL,
			data TEXT NOT NULL,
			history TEXT NOT NULL,
			checkpoints TEXT NOT NULL,
			active_checkpoint_id TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_workflow_instances_definition ON workflow_instances(definition_name)")
	return err
}

// Close releases the underlying database connection.
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

// Save upserts inst, failing with ErrConcurrencyConflict if version does
// not match the row's stored version (or the row doesn't yet exist and
// version isn't 0).
func (s *SQLiteRepository) Save(ctx context.Context, inst *workflow.WorkflowInstance, version int) (int, error) {
	r, err := toRecord(inst, version)
	if err != nil {
		return 0, err
	}
	dataJSON, err := json.Marshal(r.Data)
	if err != nil {
		return 0, fmt.Errorf("marshaling data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var existingVersion int
	err = tx.QueryRowContext(ctx, "SELECT version FROM workflow_instances WHERE id = ?", inst.ID).Scan(&existingVersion)
	switch {
	case err == sql.ErrNoRows:
		if version != 0 {
			return 0, ErrConcurrencyConflict
		}
	case err != nil:
		return 0, err
	default:
		if existingVersion != version {
			return 0, ErrConcurrencyConflict
		}
	}

	newVersion := version + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_instances (id, definition_name, current_step, data, history, checkpoints, active_checkpoint_id, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			definition_name = excluded.definition_name,
			current_step = excluded.current_step,
			data = excluded.data,
			history = excluded.history,
			checkpoints = excluded.checkpoints,
			active_checkpoint_id = excluded.active_checkpoint_id,
			version = excluded.version
	`, r.ID, r.DefinitionName, r.CurrentStep, string(dataJSON), string(r.History), string(r.Checkpoints), r.ActiveCheckpointID, newVersion)
	if err != nil {
		return 0, fmt.Errorf("upserting instance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newVersion, nil
}

// Load retrieves the row stored under id and rehydrates it against registry.
func (s *SQLiteRepository) Load(ctx context.Context, id string, registry *workflow.DefinitionRegistry, opts ...workflow.NewInstanceOption) (*workflow.WorkflowInstance, int, error) {
	var (
		r        record
		dataJSON string
		history  string
		checkpts string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT definition_name, current_step, data, history, checkpoints, active_checkpoint_id, version
		FROM workflow_instances WHERE id = ?
	`, id).Scan(&r.DefinitionName, &r.CurrentStep, &dataJSON, &history, &checkpts, &r.ActiveCheckpointID, &r.Version)
	if err == sql.ErrNoRows {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("loading instance: %w", err)
	}

	r.ID = id
	r.History = json.RawMessage(history)
	r.Checkpoints = json.RawMessage(checkpts)
	if err := json.Unmarshal([]byte(dataJSON), &r.Data); err != nil {
		return nil, 0, fmt.Errorf("unmarshaling data: %w", err)
	}

	inst, err := fromRecord(r, registry, opts...)
	if err != nil {
		return nil, 0, err
	}
	return inst, r.Version, nil
}

// Delete removes the row stored under id, or returns ErrNotFound.
func (s *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM workflow_instances WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
