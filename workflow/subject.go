package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// SubjectRef identifies a concrete subject the engine runs a workflow
// against: an agenda item, action item, meeting, minute, or external
// request. The engine itself never inspects Kind or ID — they are opaque
// to everything below the subject-binding layer.
type SubjectRef struct {
	Kind string
	ID   string
}

func (s SubjectRef) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// SubjectBinding is the 1:1 mapping from a SubjectRef to the id of the
// WorkflowInstance executing on its behalf (component C6).
type SubjectBinding struct {
	Subject    SubjectRef
	InstanceID string
}

// ErrBindingNotFound is returned when no instance is bound to a subject.
var ErrBindingNotFound = errors.New("workflow: no instance bound to subject")

// ErrAlreadyBound is returned when a subject already has a bound instance.
var ErrAlreadyBound = errors.New("workflow: subject already bound to an instance")

// BindingRepository is the port through which subject-to-instance bindings
// are persisted. It is deliberately separate from the instance Repository
// (C7) so that subject/meeting-domain storage and workflow-instance storage
// can live in different backends.
type BindingRepository interface {
	Bind(ctx context.Context, subject SubjectRef, instanceID string) error
	InstanceFor(ctx context.Context, subject SubjectRef) (string, error)
	Unbind(ctx context.Context, subject SubjectRef) error
}

// MemoryBindingRepository is an in-memory BindingRepository, safe for
// concurrent use. It is the default for tests and single-process callers.
type MemoryBindingRepository struct {
	mu       sync.RWMutex
	bindings map[SubjectRef]string
}

// NewMemoryBindingRepository returns an empty MemoryBindingRepository.
func NewMemoryBindingRepository() *MemoryBindingRepository {
	return &MemoryBindingRepository{bindings: make(map[SubjectRef]string)}
}

// Bind associates subject with instanceID, failing if the subject is
// already bound.
func (m *MemoryBindingRepository) Bind(_ context.Context, subject SubjectRef, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bindings[subject]; exists {
		return ErrAlreadyBound
	}
	m.bindings[subject] = instanceID
	return nil
}

// InstanceFor returns the instance id bound to subject, or
// ErrBindingNotFound.
func (m *MemoryBindingRepository) InstanceFor(_ context.Context, subject SubjectRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bindings[subject]
	if !ok {
		return "", ErrBindingNotFound
	}
	return id, nil
}

// Unbind removes the binding for subject, failing with ErrBindingNotFound
// if there isn't one.
func (m *MemoryBindingRepository) Unbind(_ context.Context, subject SubjectRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bindings[subject]; !ok {
		return ErrBindingNotFound
	}
	delete(m.bindings, subject)
	return nil
}
