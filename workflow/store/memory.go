package store

import (
	"context"
	"sync"

	"github.com/coreagenda/workflow/workflow"
)

// MemoryRepository is an in-memory Repository, safe for concurrent use.
// It is the default for tests and single-process callers.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]record
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]record)}
}

// Save serializes inst and stores it under inst.ID. version must match the
// version most recently returned by Load or Save for this id, or
// ErrConcurrencyConflict is returned; the very first save for a new id
// must pass version 0.
func (m *MemoryRepository) Save(_ context.Context, inst *workflow.WorkflowInstance, version int) (int, error) {
	r, err := toRecord(inst, version)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.records[inst.ID]
	if exists && existing.Version != version {
		return 0, ErrConcurrencyConflict
	}
	if !exists && version != 0 {
		return 0, ErrConcurrencyConflict
	}

	r.Version = version + 1
	m.records[inst.ID] = r
	return r.Version, nil
}

// Load returns the instance stored under id, rehydrated against registry,
// along with its current version.
func (m *MemoryRepository) Load(_ context.Context, id string, registry *workflow.DefinitionRegistry, opts ...workflow.NewInstanceOption) (*workflow.WorkflowInstance, int, error) {
	m.mu.RLock()
	r, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, ErrNotFound
	}

	inst, err := fromRecord(r, registry, opts...)
	if err != nil {
		return nil, 0, err
	}
	return inst, r.Version, nil
}

// Delete removes the record stored under id, or returns ErrNotFound.
func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}
