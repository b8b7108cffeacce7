package emit

import "context"

// Emitter receives observability events from workflow instance operations.
// Implementations must not block the caller for long and must not panic;
// a misbehaving emitter should drop or log, never crash the instance
// operation it is observing.
type Emitter interface {
	// Emit sends a single event. Implementations should return quickly.
	Emit(event Event)

	// EmitBatch sends multiple events in declared order. Returns an error
	// only on a backend-level failure, not on a per-event one.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until any buffered events have been sent, or ctx is
	// done. Safe to call more than once.
	Flush(ctx context.Context) error
}
