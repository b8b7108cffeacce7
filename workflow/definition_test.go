package workflow

import "testing"

func simpleDefinition() WorkflowDefinition {
	return NewWorkflowDefinition("order", "draft", []Step{"draft", "submitted", "approved"}, []Transition{
		{FromStep: "draft", ToStep: "submitted", Command: "submit"},
		{FromStep: "submitted", ToStep: "approved", Command: "approve"},
	})
}

func TestWorkflowDefinition_Validate(t *testing.T) {
	t.Run("valid definition passes", func(t *testing.T) {
		if err := simpleDefinition().Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty steps rejected", func(t *testing.T) {
		def := WorkflowDefinition{Name: "x", InitialStep: "a", Transitions: []Transition{{FromStep: "a", ToStep: "b", Command: "go"}}}
		err := def.Validate()
		assertDefinitionErrorCode(t, err, "EMPTY_STEPS")
	})

	t.Run("empty transitions rejected", func(t *testing.T) {
		def := WorkflowDefinition{Name: "x", InitialStep: "a", Steps: map[Step]struct{}{"a": {}}}
		err := def.Validate()
		assertDefinitionErrorCode(t, err, "EMPTY_TRANSITIONS")
	})

	t.Run("initial step must belong to step set", func(t *testing.T) {
		def := NewWorkflowDefinition("x", "missing", []Step{"a", "b"}, []Transition{{FromStep: "a", ToStep: "b", Command: "go"}})
		err := def.Validate()
		assertDefinitionErrorCode(t, err, "INITIAL_STEP_MISSING")
	})

	t.Run("transition from-step must belong to step set", func(t *testing.T) {
		def := NewWorkflowDefinition("x", "a", []Step{"a", "b"}, []Transition{{FromStep: "ghost", ToStep: "b", Command: "go"}})
		err := def.Validate()
		assertDefinitionErrorCode(t, err, "TRANSITION_FROM_MISSING")
	})

	t.Run("transition to-step must belong to step set", func(t *testing.T) {
		def := NewWorkflowDefinition("x", "a", []Step{"a", "b"}, []Transition{{FromStep: "a", ToStep: "ghost", Command: "go"}})
		err := def.Validate()
		assertDefinitionErrorCode(t, err, "TRANSITION_TO_MISSING")
	})
}

func assertDefinitionErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	defErr, ok := err.(*DefinitionError)
	if !ok {
		t.Fatalf("expected *DefinitionError, got %T (%v)", err, err)
	}
	if defErr.Code != code {
		t.Fatalf("expected code %q, got %q", code, defErr.Code)
	}
}

func TestWorkflowDefinition_FindTransition(t *testing.T) {
	def := simpleDefinition()

	t.Run("finds matching transition", func(t *testing.T) {
		tr, ok := def.FindTransition("draft", "submit")
		if !ok {
			t.Fatal("expected to find transition")
		}
		if tr.ToStep != "submitted" {
			t.Fatalf("expected target 'submitted', got %q", tr.ToStep)
		}
	})

	t.Run("no match for wrong step", func(t *testing.T) {
		if _, ok := def.FindTransition("approved", "submit"); ok {
			t.Fatal("expected no transition")
		}
	})

	t.Run("declared-order rule: first match wins", func(t *testing.T) {
		dup := NewWorkflowDefinition("dup", "a", []Step{"a", "b", "c"}, []Transition{
			{FromStep: "a", ToStep: "b", Command: "go"},
			{FromStep: "a", ToStep: "c", Command: "go"},
		})
		tr, ok := dup.FindTransition("a", "go")
		if !ok {
			t.Fatal("expected to find transition")
		}
		if tr.ToStep != "b" {
			t.Fatalf("expected first declared transition to win, got target %q", tr.ToStep)
		}
	})
}

func TestWorkflowDefinition_Commands(t *testing.T) {
	def := simpleDefinition()
	commands := def.Commands()
	if len(commands) != 2 || commands[0] != "submit" || commands[1] != "approve" {
		t.Fatalf("unexpected commands: %v", commands)
	}
}

func TestWorkflowDefinition_CommandsPretty(t *testing.T) {
	def := simpleDefinition()
	pretty := def.CommandsPretty()
	want := "submit: draft -> submitted\napprove: submitted -> approved"
	if pretty != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, pretty)
	}
}
