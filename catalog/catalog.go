// Package catalog holds the concrete WorkflowDefinitions this module
// ships for meeting management: agenda items, action items, external
// requests, meetings, and minutes. Each definition's steps and role
// guards mirror the status lifecycle that subject actually goes through
// in a meeting-management system.
package catalog

import "github.com/coreagenda/workflow/workflow"

// hasRole reports whether payload's "actor_role" key equals role. It is
// the shared guard shape every definition in this package uses: the
// original service layer checked `request.user.role` before allowing a
// transition, and a workflow guard is the direct analogue.
func hasRole(payload workflow.Payload, role string) bool {
	got, _ := payload["actor_role"].(string)
	return got == role
}

// AgendaItem mirrors AgendaItem.status: draft -> submitted ->
// approved/deferred/withdrawn, with deferred also reachable from
// approved, withdrawn also reachable from draft, and approved -> completed.
func AgendaItem() workflow.WorkflowDefinition {
	steps := []workflow.Step{"draft", "submitted", "approved", "deferred", "withdrawn", "completed"}
	transitions := []workflow.Transition{
		{FromStep: "draft", ToStep: "submitted", Command: "submit"},
		{FromStep: "draft", ToStep: "withdrawn", Command: "withdraw"},
		{FromStep: "submitted", ToStep: "withdrawn", Command: "withdraw"},
		{FromStep: "submitted", ToStep: "approved", Command: "approve", Guard: chairOnly},
		{FromStep: "submitted", ToStep: "deferred", Command: "defer", Guard: chairOnly},
		{FromStep: "approved", ToStep: "deferred", Command: "defer", Guard: chairOnly},
		{FromStep: "approved", ToStep: "completed", Command: "complete"},
	}
	return workflow.NewWorkflowDefinition("agenda_item", "draft", steps, transitions)
}

// ActionItem mirrors ActionItem.status: proposed -> assigned ->
// in_progress -> done, with rejected reachable from proposed or
// assigned, in_progress also reachable directly from proposed, and done
// also reachable directly from assigned.
func ActionItem() workflow.WorkflowDefinition {
	steps := []workflow.Step{"proposed", "assigned", "in_progress", "done", "rejected"}
	transitions := []workflow.Transition{
		{FromStep: "proposed", ToStep: "assigned", Command: "assign"},
		{FromStep: "proposed", ToStep: "in_progress", Command: "start"},
		{FromStep: "proposed", ToStep: "rejected", Command: "reject"},
		{FromStep: "assigned", ToStep: "in_progress", Command: "start"},
		{FromStep: "assigned", ToStep: "done", Command: "complete"},
		{FromStep: "assigned", ToStep: "rejected", Command: "reject"},
		{FromStep: "in_progress", ToStep: "done", Command: "complete"},
	}
	return workflow.NewWorkflowDefinition("action_item", "proposed", steps, transitions)
}

// ExternalRequest mirrors ExternalRequest.status: a single pending step
// fanning out to approved, rejected, or deferred, plus an unguarded
// withdraw path. Every transition starts from pending.
func ExternalRequest() workflow.WorkflowDefinition {
	steps := []workflow.Step{"pending", "approved", "rejected", "deferred", "withdrawn"}
	transitions := []workflow.Transition{
		{FromStep: "pending", ToStep: "approved", Command: "approve", Guard: reviewerOnly},
		{FromStep: "pending", ToStep: "rejected", Command: "reject", Guard: reviewerOnly},
		{FromStep: "pending", ToStep: "deferred", Command: "defer", Guard: reviewerOnly},
		{FromStep: "pending", ToStep: "withdrawn", Command: "withdraw"},
	}
	return workflow.NewWorkflowDefinition("external_request", "pending", steps, transitions)
}

// Meeting mirrors Meeting.status: draft -> scheduled -> in_progress ->
// completed, with cancelled and postponed reachable from either draft
// or scheduled.
func Meeting() workflow.WorkflowDefinition {
	steps := []workflow.Step{"draft", "scheduled", "in_progress", "completed", "cancelled", "postponed"}
	transitions := []workflow.Transition{
		{FromStep: "draft", ToStep: "scheduled", Command: "schedule"},
		{FromStep: "draft", ToStep: "cancelled", Command: "cancel"},
		{FromStep: "draft", ToStep: "postponed", Command: "postpone"},
		{FromStep: "scheduled", ToStep: "in_progress", Command: "convene", Guard: chairOnly},
		{FromStep: "scheduled", ToStep: "cancelled", Command: "cancel"},
		{FromStep: "scheduled", ToStep: "postponed", Command: "postpone"},
		{FromStep: "in_progress", ToStep: "completed", Command: "adjourn", Guard: chairOnly},
	}
	return workflow.NewWorkflowDefinition("meeting", "draft", steps, transitions)
}

// Minute mirrors the is_draft/approved booleans on Minute as an explicit
// three-step chain: draft -> approved -> published.
func Minute() workflow.WorkflowDefinition {
	steps := []workflow.Step{"draft", "approved", "published"}
	transitions := []workflow.Transition{
		{FromStep: "draft", ToStep: "approved", Command: "approve", Guard: chairOnly},
		{FromStep: "approved", ToStep: "published", Command: "publish"},
	}
	return workflow.NewWorkflowDefinition("minute", "draft", steps, transitions)
}

func chairOnly(_ workflow.Snapshot, payload workflow.Payload, actor workflow.Actor) bool {
	return hasRole(payload, "chair")
}

func reviewerOnly(_ workflow.Snapshot, payload workflow.Payload, actor workflow.Actor) bool {
	return hasRole(payload, "reviewer")
}

// Register adds every definition in this package to registry, failing on
// the first validation error or duplicate name.
func Register(registry *workflow.DefinitionRegistry) error {
	for _, def := range []workflow.WorkflowDefinition{
		AgendaItem(),
		ActionItem(),
		ExternalRequest(),
		Meeting(),
		Minute(),
	} {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}
