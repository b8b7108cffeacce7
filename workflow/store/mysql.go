package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coreagenda/workflow/workflow"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLRepository is a MySQL/MariaDB-backed Repository: connection
// pooling and transactional writes for production deployments with
// multiple concurrent workers.
//
// The DSN format is the standard go-sql-driver one, e.g.
// "user:password@tcp(127.0.0.1:3306)/workflows?parseTime=true".
type MySQLRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewMySQLRepository opens a connection pool against dsn and migrates the
// schema.
func NewMySQLRepository(dsn string) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	repo := &MySQLRepository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return repo, nil
}

func (s *MySQLRepository) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS workflow_instances (
			id VARCHAR(191) PRIMARY KEY,
			definition_name VARCHAR(191) NOT NULL,
			current_step VARCHAR(191) NOT NULL,
			data JSON NOT NULL,
			history JSON NOT NULL,
			checkpoints JSON NOT NULL,
			active_checkpoint_id VARCHAR(191) NOT NULL DEFAULT '',
			version INT NOT NULL,
			INDEX idx_workflow_instances_definition (definition_name)
		) ENGINE=InnoDB
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close releases the underlying connection pool.
func (s *MySQLRepository) Close() error {
	return s.db.Close()
}

// Save upserts inst, failing with ErrConcurrencyConflict if version does
// not match the row's stored version (or the row doesn't yet exist and
// version isn't 0).
func (s *MySQLRepository) Save(ctx context.Context, inst *workflow.WorkflowInstance, version int) (int, error) {
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
	err = tx.QueryRowContext(ctx, "SELECT version FROM workflow_instances WHERE id = ? FOR UPDATE", inst.ID).Scan(&existingVersion)
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
		ON DUPLICATE KEY UPDATE
			definition_name = VALUES(definition_name),
			current_step = VALUES(current_step),
			data = VALUES(data),
			history = VALUES(history),
			checkpoints = VALUES(checkpoints),
			active_checkpoint_id = VALUES(active_checkpoint_id),
			version = VALUES(version)
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
func (s *MySQLRepository) Load(ctx context.Context, id string, registry *workflow.DefinitionRegistry, opts ...workflow.NewInstanceOption) (*workflow.WorkflowInstance, int, error) {
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
func (s *MySQLRepository) Delete(ctx context.Context, id string) error {
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
