package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bag is the opaque, keyed data store carried by a WorkflowInstance and
// snapshotted by Checkpoints. Values are anything JSON can represent:
// strings, numbers, bools, nil, and nested maps/slices of the same.
//
// Merge is shallow by design: a payload key
// replaces whatever the bag already holds for that key, including whole
// nested structures. Callers that want deep merging must flatten their own
// keys before calling ApplyCommand.
type Bag map[string]any

// Merge writes every key in delta into b, overwriting existing keys.
func (b Bag) Merge(delta Bag) {
	for k, v := range delta {
		b[k] = v
	}
}

// Clone returns a deep copy of b via a JSON marshal/unmarshal round trip.
// This is the natural deep-clone strategy for a generic string-keyed value
// bag in Go: encoding/json already understands the exact value union the
// bag is defined over, so no bespoke recursive-copy walker is needed.
func (b Bag) Clone() Bag {
	if b == nil {
		return Bag{}
	}
	encoded, err := json.Marshal(b)
	if err != nil {
		// Bag values are restricted to JSON-representable types by contract;
		// a marshal failure here means a caller put something else in, which
		// is a programmer error, not a runtime condition to recover from.
		panic(fmt.Sprintf("workflow: data bag is not JSON-serializable: %v", err))
	}
	cloned := Bag{}
	if err := json.Unmarshal(encoded, &cloned); err != nil {
		panic(fmt.Sprintf("workflow: data bag round-trip failed: %v", err))
	}
	return cloned
}

// Clock supplies the timestamp stamped onto every HistoryEvent at
// construction. Production code uses UTCClock; tests inject a virtual clock
// so event ordering assertions don't depend on wall-clock jitter.
type Clock interface {
	Now() time.Time
}

// UTCClock is the production Clock, backed by the real wall clock.
type UTCClock struct{}

// Now returns the current time in UTC.
func (UTCClock) Now() time.Time { return time.Now().UTC() }

// SequentialClock is a deterministic test Clock that advances by a fixed
// step on every call, guaranteeing strictly increasing, reproducible
// timestamps without sleeping real time.
type SequentialClock struct {
	current time.Time
	step    time.Duration
}

// NewSequentialClock returns a SequentialClock starting at start and
// advancing by step on every call to Now.
func NewSequentialClock(start time.Time, step time.Duration) *SequentialClock {
	if step <= 0 {
		step = time.Millisecond
	}
	return &SequentialClock{current: start, step: step}
}

// Now returns the next timestamp in the sequence.
func (c *SequentialClock) Now() time.Time {
	t := c.current
	c.current = c.current.Add(c.step)
	return t
}

// IDGenerator mints unique identifiers for instances and checkpoints. It is
// injected so tests can assert against known ids instead of random UUIDs.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the production IDGenerator, backed by google/uuid.
type UUIDGenerator struct{}

// NewID returns a new random (v4) UUID as a string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator is a deterministic test IDGenerator that returns a
// caller-supplied prefix followed by an incrementing counter.
type SequenceGenerator struct {
	Prefix  string
	counter int
}

// NewID returns the next id in the sequence.
func (s *SequenceGenerator) NewID() string {
	s.counter++
	return fmt.Sprintf("%s-%d", s.Prefix, s.counter)
}
