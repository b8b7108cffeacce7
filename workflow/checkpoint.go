package workflow

import "time"

// Checkpoint is an immutable snapshot of a WorkflowInstance's (step, data)
// at the moment it was saved. Data is deep-cloned at save time so later
// mutation of the live instance never aliases a stored checkpoint.
type Checkpoint struct {
	ID        string
	Label     string
	Step      Step
	Data      Bag
	CreatedAt time.Time
}
