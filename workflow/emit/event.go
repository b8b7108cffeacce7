// Package emit provides pluggable event emission for workflow instance
// operations: log lines, JSONL, or a null backend.
package emit

// Event is a single observability record emitted around a workflow
// instance operation.
type Event struct {
	// InstanceID identifies the WorkflowInstance that emitted this event.
	InstanceID string

	// Seq is the event's position in the instance's history at emission
	// time. Zero is valid — it does not mean "unset".
	Seq int

	// Msg is a short machine-stable name: "command_applied",
	// "command_rejected", "checkpoint_saved", "rollback", "rollforward".
	Msg string

	// Meta carries event-specific structured detail: command name, actor,
	// checkpoint id, duration, or an error string.
	Meta map[string]interface{}
}
