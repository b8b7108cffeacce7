package emit

import "context"

// NullEmitter discards every event. It is the default for callers that
// don't want observability overhead, and a convenient stand-in in tests
// that exercise WorkflowInstance without asserting on emitted events.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

func (NullEmitter) Emit(Event) {}

func (NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (NullEmitter) Flush(context.Context) error { return nil }
