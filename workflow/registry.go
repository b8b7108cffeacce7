package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// DefinitionRegistry resolves WorkflowDefinitions by name. Instances are
// persisted with a definition_name, never with the definition itself; the
// registry is what a repository's Load implementation consults to reattach
// a definition after loading an instance's stored fields.
//
// DefinitionRegistry is safe for concurrent use.
type DefinitionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]WorkflowDefinition
}

// NewDefinitionRegistry returns an empty registry.
func NewDefinitionRegistry() *DefinitionRegistry {
	return &DefinitionRegistry{definitions: make(map[string]WorkflowDefinition)}
}

// Register validates def and adds it under def.Name, returning a
// DefinitionError if it fails validation or a name is already registered.
func (r *DefinitionRegistry) Register(def WorkflowDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Name]; exists {
		return newDefinitionError("DUPLICATE_NAME", fmt.Sprintf("a definition named %q is already registered", def.Name))
	}
	r.definitions[def.Name] = def
	return nil
}

// Get returns the definition registered under name, or false if none is.
func (r *DefinitionRegistry) Get(name string) (WorkflowDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

// MustGet returns the definition registered under name, panicking if none
// is. It is meant for startup wiring, where an unregistered definition name
// is a configuration bug, not a runtime condition to handle.
func (r *DefinitionRegistry) MustGet(name string) WorkflowDefinition {
	def, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("workflow: no definition registered under name %q", name))
	}
	return def
}

// Names returns every registered definition name, sorted for deterministic
// iteration.
func (r *DefinitionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
