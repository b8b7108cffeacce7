// Package workflow implements a generic, data-driven workflow engine:
// immutable definitions of steps and guarded transitions, and mutable
// instances that execute commands against those definitions while keeping
// an auditable history and labelled, bidirectionally-navigable checkpoints.
package workflow

import (
	"fmt"
	"strings"
)

// Step is an opaque label for a position in a workflow's state space. It
// carries no ordering beyond what the definition's transitions induce.
type Step string

// Actor is an opaque identity token recorded in history. The engine never
// validates or authorizes actors — the caller has already done so.
type Actor struct {
	Name string
}

// Payload is the keyed value bag supplied with a single command invocation.
// It is merged shallowly into the instance's data bag on success.
type Payload = Bag

// Guard is a pure predicate gating a transition: given a read-only snapshot
// of the instance, the command's payload, and the acting identity, it
// reports whether the transition may fire. A nil Guard is always-true.
//
// Guards must be pure and non-blocking: if a guard needs external
// I/O, the caller should precompute the answer and pass it through the
// payload instead.
type Guard func(snapshot Snapshot, payload Payload, actor Actor) bool

// Snapshot is the read-only view of instance state passed to a Guard. It is
// a value copy, not a reference into live instance state, so a guard can
// never observe or cause a mutation of the instance it is gating.
type Snapshot struct {
	CurrentStep        Step
	Data               Bag
	ActiveCheckpointID string
}

// Transition is an immutable directed edge in a WorkflowDefinition, labelled
// by the command that fires it and optionally gated by a Guard.
type Transition struct {
	FromStep Step
	ToStep   Step
	Command  string
	Guard    Guard
}

// WorkflowDefinition is the immutable blueprint of a process: what steps
// exist, which one is initial, and which commands move an instance between
// steps. It carries no instance data and is safe to share across instances
// and goroutines.
type WorkflowDefinition struct {
	Name        string
	InitialStep Step
	Steps       map[Step]struct{}
	Transitions []Transition
}

// NewWorkflowDefinition builds a definition from a step list and transition
// list, for callers who would rather pass a slice than build the Steps set
// by hand. It does not validate; call Validate before use.
func NewWorkflowDefinition(name string, initial Step, steps []Step, transitions []Transition) WorkflowDefinition {
	set := make(map[Step]struct{}, len(steps))
	for _, s := range steps {
		set[s] = struct{}{}
	}
	return WorkflowDefinition{
		Name:        name,
		InitialStep: initial,
		Steps:       set,
		Transitions: transitions,
	}
}

// Validate checks the invariants required of a definition:
// non-empty steps and transitions, an initial step that belongs to steps,
// and from/to steps on every transition that belong to steps. Determinism
// (at most one transition per (from, command) pair) is not rejected here —
// per the declared-order rule, a duplicate is resolved by taking the first
// match, not by failing validation, matching the source's behavior.
//
// Construction without validation is permitted; no instance operation may
// run against a definition that has not been validated — that precondition
// is the caller's responsibility, not something this engine re-checks on
// every operation.
func (d WorkflowDefinition) Validate() error {
	if len(d.Steps) == 0 {
		return newDefinitionError("EMPTY_STEPS", "a definition requires at least one step")
	}
	if len(d.Transitions) == 0 {
		return newDefinitionError("EMPTY_TRANSITIONS", "a definition requires at least one transition")
	}
	if _, ok := d.Steps[d.InitialStep]; !ok {
		return newDefinitionError("INITIAL_STEP_MISSING", fmt.Sprintf("initial step %q is not in the step set", d.InitialStep))
	}
	for _, t := range d.Transitions {
		if _, ok := d.Steps[t.FromStep]; !ok {
			return newDefinitionError("TRANSITION_FROM_MISSING", fmt.Sprintf("transition %q references unknown from-step %q", t.Command, t.FromStep))
		}
		if _, ok := d.Steps[t.ToStep]; !ok {
			return newDefinitionError("TRANSITION_TO_MISSING", fmt.Sprintf("transition %q references unknown to-step %q", t.Command, t.ToStep))
		}
	}
	return nil
}

// Commands returns the multiset of command labels declared across all
// transitions; duplicates across distinct from-steps are preserved.
func (d WorkflowDefinition) Commands() []string {
	out := make([]string, len(d.Transitions))
	for i, t := range d.Transitions {
		out[i] = t.Command
	}
	return out
}

// FindTransition returns the first transition in declaration order whose
// FromStep and Command match, and false if none does. When two transitions
// share the same (from, command) pair with different guards, the first
// declared wins regardless of what its guard would evaluate to.
func (d WorkflowDefinition) FindTransition(step Step, command string) (Transition, bool) {
	for _, t := range d.Transitions {
		if t.FromStep == step && t.Command == command {
			return t, true
		}
	}
	return Transition{}, false
}

// CommandsPretty renders one "command: from -> to" line per transition, in
// declaration order, for diagnostics and operator-facing tooling.
func (d WorkflowDefinition) CommandsPretty() string {
	lines := make([]string, len(d.Transitions))
	for i, t := range d.Transitions {
		lines[i] = fmt.Sprintf("%s: %s -> %s", t.Command, t.FromStep, t.ToStep)
	}
	return strings.Join(lines, "\n")
}
