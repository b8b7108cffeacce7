// Package store provides persistence implementations for the Repository
// port a WorkflowInstance is saved to and loaded from.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coreagenda/workflow/workflow"
)

// ErrNotFound is returned when a requested instance id does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConcurrencyConflict is returned by Save when the record's stored
// version no longer matches the version the caller last loaded, meaning
// another writer has saved over it in the meantime.
var ErrConcurrencyConflict = errors.New("store: concurrency conflict")

// Repository is the persistence port a WorkflowInstance is saved to and
// loaded from. Implementations are expected to
// serialize the instance's full field set — id, definition name, current
// step, data, history, checkpoints, and active checkpoint id — and to
// detect lost updates via Version.
//
// Load needs a DefinitionRegistry because instances are persisted with a
// definition_name, not the definition itself; the registry is what
// reattaches the right WorkflowDefinition on the way back out.
type Repository interface {
	Save(ctx context.Context, inst *workflow.WorkflowInstance, version int) (newVersion int, err error)
	Load(ctx context.Context, id string, registry *workflow.DefinitionRegistry, opts ...workflow.NewInstanceOption) (*workflow.WorkflowInstance, int, error)
	Delete(ctx context.Context, id string) error
}

// record is the wire representation of a WorkflowInstance: every exported
// field plus a Version column for optimistic concurrency.
type record struct {
	ID                 string          `json:"id"`
	DefinitionName     string          `json:"definition_name"`
	CurrentStep        string          `json:"current_step"`
	Data               workflow.Bag    `json:"data"`
	History            json.RawMessage `json:"history"`
	Checkpoints        json.RawMessage `json:"checkpoints"`
	ActiveCheckpointID string          `json:"active_checkpoint_id"`
	Version            int             `json:"version"`
}

// wireEvent is the tagged-union encoding of a workflow.HistoryEvent: its
// concrete Go type would otherwise be unrecoverable from plain JSON,
// since HistoryEvent is a sealed interface with no exported type field.
type wireEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Fields    json.RawMessage `json:"fields"`
}

const (
	eventTypeCommandApplied  = "command_applied"
	eventTypeCheckpointSaved = "checkpoint_saved"
	eventTypeStateRestored   = "state_restored"
)

func encodeHistory(history []workflow.HistoryEvent) (json.RawMessage, error) {
	wire := make([]wireEvent, len(history))
	for idx, evt := range history {
		w, err := encodeEvent(evt)
		if err != nil {
			return nil, fmt.Errorf("encoding history[%d]: %w", idx, err)
		}
		wire[idx] = w
	}
	return json.Marshal(wire)
}

func encodeEvent(evt workflow.HistoryEvent) (wireEvent, error) {
	var (
		typ    string
		fields interface{}
	)
	switch e := evt.(type) {
	case workflow.CommandApplied:
		typ, fields = eventTypeCommandApplied, e
	case workflow.CheckpointSaved:
		typ, fields = eventTypeCheckpointSaved, e
	case workflow.StateRestored:
		typ, fields = eventTypeStateRestored, e
	default:
		return wireEvent{}, fmt.Errorf("unknown history event type %T", evt)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return wireEvent{}, err
	}
	return wireEvent{Type: typ, Timestamp: evt.When(), Fields: raw}, nil
}

func decodeHistory(data json.RawMessage) ([]workflow.HistoryEvent, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var wire []wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	history := make([]workflow.HistoryEvent, len(wire))
	for idx, w := range wire {
		evt, err := decodeEvent(w)
		if err != nil {
			return nil, fmt.Errorf("decoding history[%d]: %w", idx, err)
		}
		history[idx] = evt
	}
	return history, nil
}

func decodeEvent(w wireEvent) (workflow.HistoryEvent, error) {
	switch w.Type {
	case eventTypeCommandApplied:
		var e workflow.CommandApplied
		if err := json.Unmarshal(w.Fields, &e); err != nil {
			return nil, err
		}
		return e, nil
	case eventTypeCheckpointSaved:
		var e workflow.CheckpointSaved
		if err := json.Unmarshal(w.Fields, &e); err != nil {
			return nil, err
		}
		return e, nil
	case eventTypeStateRestored:
		var e workflow.StateRestored
		if err := json.Unmarshal(w.Fields, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown history event type %q", w.Type)
	}
}

func toRecord(inst *workflow.WorkflowInstance, version int) (record, error) {
	history, err := encodeHistory(inst.History)
	if err != nil {
		return record{}, err
	}
	checkpoints, err := json.Marshal(inst.Checkpoints)
	if err != nil {
		return record{}, err
	}
	return record{
		ID:                 inst.ID,
		DefinitionName:     inst.Definition.Name,
		CurrentStep:        string(inst.CurrentStep),
		Data:               inst.Data,
		History:            history,
		Checkpoints:        checkpoints,
		ActiveCheckpointID: inst.ActiveCheckpointID,
		Version:            version,
	}, nil
}

func fromRecord(r record, registry *workflow.DefinitionRegistry, opts ...workflow.NewInstanceOption) (*workflow.WorkflowInstance, error) {
	def, ok := registry.Get(r.DefinitionName)
	if !ok {
		return nil, fmt.Errorf("store: no definition registered under name %q", r.DefinitionName)
	}
	history, err := decodeHistory(r.History)
	if err != nil {
		return nil, err
	}
	var checkpoints []workflow.Checkpoint
	if len(r.Checkpoints) > 0 {
		if err := json.Unmarshal(r.Checkpoints, &checkpoints); err != nil {
			return nil, err
		}
	}
	data := r.Data
	if data == nil {
		data = workflow.Bag{}
	}
	return workflow.RehydrateInstance(r.ID, def, workflow.Step(r.CurrentStep), data, history, checkpoints, r.ActiveCheckpointID, opts...), nil
}
