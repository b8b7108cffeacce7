package catalog

import (
	"context"
	"testing"

	"github.com/coreagenda/workflow/workflow"
)

func TestRegister_AllDefinitionsValidate(t *testing.T) {
	registry := workflow.NewDefinitionRegistry()
	if err := Register(registry); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	for _, name := range []string{"agenda_item", "action_item", "external_request", "meeting", "minute"} {
		if _, ok := registry.Get(name); !ok {
			t.Errorf("expected %q to be registered", name)
		}
	}
}

func TestAgendaItem_HappyPath(t *testing.T) {
	ctx := context.Background()
	inst := workflow.NewWorkflowInstance(AgendaItem())

	chair := workflow.Actor{Name: "chair-1"}
	steps := []struct {
		command string
		payload workflow.Payload
		want    workflow.Step
	}{
		{"submit", nil, "submitted"},
		{"approve", workflow.Payload{"actor_role": "chair"}, "approved"},
		{"complete", nil, "completed"},
	}

	for _, s := range steps {
		if err := inst.ApplyCommand(ctx, s.command, s.payload, chair); err != nil {
			t.Fatalf("ApplyCommand(%q) returned error: %v", s.command, err)
		}
		if inst.CurrentStep != s.want {
			t.Fatalf("after %q expected step %q, got %q", s.command, s.want, inst.CurrentStep)
		}
	}
}

func TestAgendaItem_ApproveRequiresChairRole(t *testing.T) {
	ctx := context.Background()
	inst := workflow.NewWorkflowInstance(AgendaItem())

	if err := inst.ApplyCommand(ctx, "submit", nil, workflow.Actor{Name: "proposer"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	err := inst.ApplyCommand(ctx, "approve", workflow.Payload{"actor_role": "proposer"}, workflow.Actor{Name: "proposer"})
	if err == nil {
		t.Fatal("expected approve without chair role to fail")
	}
	if inst.CurrentStep != "submitted" {
		t.Fatalf("expected instance to remain submitted after rejected approve, got %q", inst.CurrentStep)
	}
}

func TestActionItem_StartDirectlyFromProposed(t *testing.T) {
	ctx := context.Background()
	inst := workflow.NewWorkflowInstance(ActionItem())

	if err := inst.ApplyCommand(ctx, "start", nil, workflow.Actor{Name: "assignee"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if inst.CurrentStep != "in_progress" {
		t.Fatalf("expected in_progress, got %q", inst.CurrentStep)
	}
}

func TestExternalRequest_WithdrawFromPendingNeedsNoRole(t *testing.T) {
	ctx := context.Background()
	inst := workflow.NewWorkflowInstance(ExternalRequest())

	if err := inst.ApplyCommand(ctx, "withdraw", nil, workflow.Actor{Name: "requester"}); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if inst.CurrentStep != "withdrawn" {
		t.Fatalf("expected withdrawn, got %q", inst.CurrentStep)
	}
}

func TestMeeting_CancelFromScheduled(t *testing.T) {
	ctx := context.Background()
	inst := workflow.NewWorkflowInstance(Meeting())
	chair := workflow.Actor{Name: "chair-1"}

	if err := inst.ApplyCommand(ctx, "schedule", nil, chair); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if err := inst.ApplyCommand(ctx, "cancel", nil, chair); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if inst.CurrentStep != "cancelled" {
		t.Fatalf("expected cancelled, got %q", inst.CurrentStep)
	}
}

func TestMinute_PublishRequiresApprovalFirst(t *testing.T) {
	ctx := context.Background()
	inst := workflow.NewWorkflowInstance(Minute())

	err := inst.ApplyCommand(ctx, "publish", nil, workflow.Actor{Name: "secretary"})
	if err == nil {
		t.Fatal("expected publish before approve to fail")
	}

	if err := inst.ApplyCommand(ctx, "approve", workflow.Payload{"actor_role": "chair"}, workflow.Actor{Name: "chair-1"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := inst.ApplyCommand(ctx, "publish", nil, workflow.Actor{Name: "secretary"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if inst.CurrentStep != "published" {
		t.Fatalf("expected published, got %q", inst.CurrentStep)
	}
}
