package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreagenda/workflow/workflow/emit"
)

// Observer wraps the three observability backends a WorkflowInstance can
// be wired to: a structured-event Emitter, an OpenTelemetry Tracer, and a
// Metrics collector. Any of the three may be left unset; Observer only
// drives the ones it was given. WorkflowInstance holds an *Observer
// (possibly nil) and calls into it around ApplyCommand, SaveCheckpoint,
// Rollback, and Rollforward.
type Observer struct {
	Emitter emit.Emitter
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewObserver builds an Observer from its three optional backends. Passing
// nil for any of them disables that backend only.
func NewObserver(emitter emit.Emitter, tracer trace.Tracer, metrics *Metrics) *Observer {
	return &Observer{Emitter: emitter, Tracer: tracer, Metrics: metrics}
}

func (i *WorkflowInstance) notifyCommand(ctx context.Context, command string, actor Actor, start time.Time, err error) {
	if i.observer == nil {
		return
	}
	duration := i.clock.Now().Sub(start)
	obs := i.observer

	if obs.Tracer != nil {
		_, span := obs.Tracer.Start(ctx, "workflow.apply_command")
		span.SetAttributes(
			attribute.String("workflow.instance_id", i.ID),
			attribute.String("workflow.command", command),
			attribute.String("workflow.actor", actor.Name),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}

	if obs.Metrics != nil {
		obs.Metrics.observeInstanceOp("apply_command", duration)
		if err != nil {
			var guardErr *GuardError
			if errors.As(err, &guardErr) {
				obs.Metrics.guardFailures.Inc()
			} else {
				obs.Metrics.invalidTransitions.Inc()
			}
		} else {
			obs.Metrics.commandsApplied.Inc()
		}
	}

	if obs.Emitter != nil {
		meta := map[string]interface{}{
			"command":     command,
			"actor":       actor.Name,
			"duration_ms": duration.Milliseconds(),
		}
		msg := "command_applied"
		if err != nil {
			msg = "command_rejected"
			meta["error"] = err.Error()
			log.Printf("workflow: command rejected instance=%s command=%s err=%v", i.ID, command, err)
		}
		obs.Emitter.Emit(emit.Event{
			InstanceID: i.ID,
			Seq:        len(i.History),
			Msg:        msg,
			Meta:       meta,
		})
	}
}

func (i *WorkflowInstance) notifyCheckpointSaved(ctx context.Context, cp Checkpoint, actor Actor) {
	if i.observer == nil {
		return
	}
	obs := i.observer

	if obs.Tracer != nil {
		_, span := obs.Tracer.Start(ctx, "workflow.save_checkpoint")
		span.SetAttributes(
			attribute.String("workflow.instance_id", i.ID),
			attribute.String("workflow.checkpoint_id", cp.ID),
			attribute.String("workflow.checkpoint_label", cp.Label),
		)
		span.End()
	}

	if obs.Metrics != nil {
		obs.Metrics.checkpointsSaved.Inc()
	}

	if obs.Emitter != nil {
		obs.Emitter.Emit(emit.Event{
			InstanceID: i.ID,
			Seq:        len(i.History),
			Msg:        "checkpoint_saved",
			Meta: map[string]interface{}{
				"checkpoint_id": cp.ID,
				"label":         cp.Label,
				"actor":         actor.Name,
			},
		})
	}
}

func (i *WorkflowInstance) notifyRestored(ctx context.Context, evt StateRestored) {
	if i.observer == nil {
		return
	}
	obs := i.observer

	if obs.Tracer != nil {
		_, span := obs.Tracer.Start(ctx, fmt.Sprintf("workflow.%s", evt.Direction))
		span.SetAttributes(
			attribute.String("workflow.instance_id", i.ID),
			attribute.String("workflow.checkpoint_id", evt.CheckpointID),
		)
		span.End()
	}

	if obs.Metrics != nil {
		obs.Metrics.checkpointRestores.WithLabelValues(string(evt.Direction)).Inc()
	}

	if obs.Emitter != nil {
		obs.Emitter.Emit(emit.Event{
			InstanceID: i.ID,
			Seq:        len(i.History),
			Msg:        string(evt.Direction),
			Meta: map[string]interface{}{
				"checkpoint_id": evt.CheckpointID,
				"actor":         evt.Actor.Name,
			},
		})
	}
}

// corruptedState logs a detected consistency violation with the instance's
// identifying fields, then returns ErrCorruptedState unchanged, so callers
// get the same sentinel whether or not logging is configured.
func (i *WorkflowInstance) corruptedState() error {
	log.Printf("workflow: corrupted state instance=%s current_step=%s active_checkpoint=%s",
		i.ID, i.CurrentStep, i.ActiveCheckpointID)
	return ErrCorruptedState
}
