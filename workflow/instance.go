package workflow

import (
	"context"
	"fmt"
	"sort"
)

// WorkflowInstance is the mutable aggregate that executes a
// WorkflowDefinition: it tracks a current step, a data bag, an
// append-only history of events, and a list of labelled checkpoints with
// a pointer to whichever one is currently active.
//
// A WorkflowInstance is not safe for concurrent use; callers that share
// one across goroutines must serialize access themselves.
type WorkflowInstance struct {
	ID                 string
	Definition         WorkflowDefinition
	CurrentStep        Step
	Data               Bag
	History            []HistoryEvent
	Checkpoints        []Checkpoint
	ActiveCheckpointID string

	clock    Clock
	ids      IDGenerator
	observer *Observer
}

// NewInstanceOption configures a WorkflowInstance at construction.
type NewInstanceOption func(*WorkflowInstance)

// WithClock overrides the default UTCClock.
func WithClock(clock Clock) NewInstanceOption {
	return func(i *WorkflowInstance) { i.clock = clock }
}

// WithIDGenerator overrides the default UUIDGenerator.
func WithIDGenerator(gen IDGenerator) NewInstanceOption {
	return func(i *WorkflowInstance) { i.ids = gen }
}

// WithObserver attaches an Observer that is notified around every
// instance operation. A nil Observer (the default) disables notification
// entirely; callers do not need to supply a no-op implementation.
func WithObserver(obs *Observer) NewInstanceOption {
	return func(i *WorkflowInstance) { i.observer = obs }
}

// NewWorkflowInstance starts a fresh instance of def at its initial step,
// with an empty data bag, history, and checkpoint list.
func NewWorkflowInstance(def WorkflowDefinition, opts ...NewInstanceOption) *WorkflowInstance {
	inst := &WorkflowInstance{
		Definition:  def,
		CurrentStep: def.InitialStep,
		Data:        Bag{},
		clock:       UTCClock{},
		ids:         UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.ID = inst.ids.NewID()
	return inst
}

// RehydrateInstance reconstructs a WorkflowInstance from fields a
// Repository loaded back out of storage, wiring in the Clock and
// IDGenerator options just as NewWorkflowInstance does. It exists
// because ID, CurrentStep, History, Checkpoints, and ActiveCheckpointID
// are set from persisted values rather than initial ones, and the
// unexported clock/ids fields are otherwise unreachable from outside the
// package.
func RehydrateInstance(
	id string,
	def WorkflowDefinition,
	currentStep Step,
	data Bag,
	history []HistoryEvent,
	checkpoints []Checkpoint,
	activeCheckpointID string,
	opts ...NewInstanceOption,
) *WorkflowInstance {
	inst := &WorkflowInstance{
		ID:                 id,
		Definition:         def,
		CurrentStep:        currentStep,
		Data:               data,
		History:            history,
		Checkpoints:        checkpoints,
		ActiveCheckpointID: activeCheckpointID,
		clock:              UTCClock{},
		ids:                UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ApplyCommand looks up the transition for (instance's current step,
// command), evaluates its guard, and on success moves the instance to the
// transition's target step while merging payload into the data bag.
//
// The next state is computed off to the side before anything on the
// receiver is mutated, so a rejected command (no transition, guard
// false, guard panic) leaves the instance byte-for-byte as it was.
// A successful application always clears
// ActiveCheckpointID, since the instance has now diverged from whatever
// checkpoint was active.
func (i *WorkflowInstance) ApplyCommand(ctx context.Context, command string, payload Payload, actor Actor) (err error) {
	start := i.clock.Now()
	defer func() {
		i.notifyCommand(ctx, command, actor, start, err)
	}()

	transition, ok := i.Definition.FindTransition(i.CurrentStep, command)
	if !ok {
		err = &TransitionError{CurrentStep: string(i.CurrentStep), Command: command}
		return err
	}

	if transition.Guard != nil {
		allowed, guardErr := evaluateGuard(transition.Guard, i.snapshot(), payload, actor)
		if guardErr != nil {
			err = &GuardError{CurrentStep: string(i.CurrentStep), Command: command, Cause: guardErr}
			return err
		}
		if !allowed {
			err = &GuardError{CurrentStep: string(i.CurrentStep), Command: command}
			return err
		}
	}

	nextData := i.Data.Clone()
	nextData.Merge(payload)
	nextStep := transition.ToStep

	event := newCommandApplied(i.clock.Now(), i.CurrentStep, nextStep, command, actor, payload)

	i.CurrentStep = nextStep
	i.Data = nextData
	i.ActiveCheckpointID = ""
	i.History = append(i.History, event)
	return nil
}

// evaluateGuard runs guard and recovers a panic into an error, so that a
// misbehaving guard rejects the transition instead of crashing the
// caller: guards are expected to be pure, but the engine does not trust
// that claim.
func evaluateGuard(guard Guard, snapshot Snapshot, payload Payload, actor Actor) (allowed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			allowed = false
			err = fmt.Errorf("guard panicked: %v", r)
		}
	}()
	return guard(snapshot, payload, actor), nil
}

func (i *WorkflowInstance) snapshot() Snapshot {
	return Snapshot{
		CurrentStep:        i.CurrentStep,
		Data:               i.Data.Clone(),
		ActiveCheckpointID: i.ActiveCheckpointID,
	}
}

// SaveCheckpoint deep-clones the instance's current (step, data) into a
// new labelled Checkpoint, appends it to the checkpoint list, and makes
// it the active checkpoint. Saving never alters CurrentStep or Data.
func (i *WorkflowInstance) SaveCheckpoint(ctx context.Context, label string, actor Actor) (cp Checkpoint, err error) {
	now := i.clock.Now()
	cp = Checkpoint{
		ID:        i.ids.NewID(),
		Label:     label,
		Step:      i.CurrentStep,
		Data:      i.Data.Clone(),
		CreatedAt: now,
	}
	i.Checkpoints = append(i.Checkpoints, cp)
	i.ActiveCheckpointID = cp.ID

	event := newCheckpointSaved(now, cp, actor)
	i.History = append(i.History, event)

	i.notifyCheckpointSaved(ctx, cp, actor)
	return cp, nil
}

// orderedCheckpoints returns Checkpoints sorted by CreatedAt, stable on
// ties. Checkpoints are appended in save order, which is already
// CreatedAt order under a monotonic clock, but Rollback/Rollforward sort
// explicitly rather than assume callers never reorder or merge
// checkpoint lists from elsewhere (e.g. after loading from a
// Repository).
func (i *WorkflowInstance) orderedCheckpoints() []Checkpoint {
	ordered := make([]Checkpoint, len(i.Checkpoints))
	copy(ordered, i.Checkpoints)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].CreatedAt.Before(ordered[b].CreatedAt)
	})
	return ordered
}

// Rollback moves the instance to the checkpoint immediately before the
// currently active one. If the instance is live (no active checkpoint),
// rollback targets the most recent checkpoint. Returns a CheckpointError
// if there are no checkpoints at all, or the active checkpoint is
// already the earliest one.
func (i *WorkflowInstance) Rollback(ctx context.Context, actor Actor) (err error) {
	ordered := i.orderedCheckpoints()
	if len(ordered) == 0 {
		err = newCheckpointError(CheckpointCodeNone, "instance has no saved checkpoints")
		return err
	}

	var targetIdx int
	if i.ActiveCheckpointID == "" {
		targetIdx = len(ordered) - 1
	} else {
		currentIdx, found := indexOfCheckpoint(ordered, i.ActiveCheckpointID)
		if !found {
			err = i.corruptedState()
			return err
		}
		if currentIdx == 0 {
			err = newCheckpointError(CheckpointCodeEarliest, "already at the earliest checkpoint")
			return err
		}
		targetIdx = currentIdx - 1
	}

	return i.restore(ctx, ordered[targetIdx], actor, DirectionRollback)
}

// Rollforward moves the instance to the checkpoint immediately after the
// currently active one. Returns a CheckpointError if the instance is
// live (there is no active checkpoint to roll forward from) or already
// at the most recent checkpoint.
func (i *WorkflowInstance) Rollforward(ctx context.Context, actor Actor) (err error) {
	if i.ActiveCheckpointID == "" {
		err = newCheckpointError(CheckpointCodeLive, "instance is live; there is no checkpoint to roll forward from")
		return err
	}
	ordered := i.orderedCheckpoints()
	if len(ordered) == 0 {
		err = newCheckpointError(CheckpointCodeNone, "instance has no saved checkpoints")
		return err
	}

	currentIdx, found := indexOfCheckpoint(ordered, i.ActiveCheckpointID)
	if !found {
		err = i.corruptedState()
		return err
	}
	if currentIdx == len(ordered)-1 {
		err = newCheckpointError(CheckpointCodeLatest, "already at the latest checkpoint")
		return err
	}

	return i.restore(ctx, ordered[currentIdx+1], actor, DirectionRollforward)
}

func indexOfCheckpoint(ordered []Checkpoint, id string) (int, bool) {
	for idx, cp := range ordered {
		if cp.ID == id {
			return idx, true
		}
	}
	return 0, false
}

func (i *WorkflowInstance) restore(ctx context.Context, target Checkpoint, actor Actor, direction RestoreDirection) error {
	i.CurrentStep = target.Step
	i.Data = target.Data.Clone()
	i.ActiveCheckpointID = target.ID

	event := newStateRestored(i.clock.Now(), target.ID, actor, direction)
	i.History = append(i.History, event)

	i.notifyRestored(ctx, event)
	return nil
}
