package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestSubjectRef_String(t *testing.T) {
	ref := SubjectRef{Kind: "agenda_item", ID: "42"}
	if ref.String() != "agenda_item:42" {
		t.Fatalf("expected 'agenda_item:42', got %q", ref.String())
	}
}

func TestMemoryBindingRepository_BindAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBindingRepository()
	ref := SubjectRef{Kind: "meeting", ID: "1"}

	if err := repo.Bind(ctx, ref, "inst-1"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	id, err := repo.InstanceFor(ctx, ref)
	if err != nil {
		t.Fatalf("InstanceFor failed: %v", err)
	}
	if id != "inst-1" {
		t.Fatalf("expected inst-1, got %q", id)
	}
}

func TestMemoryBindingRepository_BindTwiceFails(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBindingRepository()
	ref := SubjectRef{Kind: "meeting", ID: "1"}

	if err := repo.Bind(ctx, ref, "inst-1"); err != nil {
		t.Fatalf("first Bind failed: %v", err)
	}
	err := repo.Bind(ctx, ref, "inst-2")
	if !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
}

func TestMemoryBindingRepository_InstanceForMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBindingRepository()

	_, err := repo.InstanceFor(ctx, SubjectRef{Kind: "meeting", ID: "ghost"})
	if !errors.Is(err, ErrBindingNotFound) {
		t.Fatalf("expected ErrBindingNotFound, got %v", err)
	}
}

func TestMemoryBindingRepository_Unbind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBindingRepository()
	ref := SubjectRef{Kind: "minute", ID: "7"}

	if err := repo.Bind(ctx, ref, "inst-1"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := repo.Unbind(ctx, ref); err != nil {
		t.Fatalf("Unbind failed: %v", err)
	}

	if _, err := repo.InstanceFor(ctx, ref); !errors.Is(err, ErrBindingNotFound) {
		t.Fatalf("expected binding to be gone, got %v", err)
	}
}

func TestMemoryBindingRepository_UnbindMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBindingRepository()

	err := repo.Unbind(ctx, SubjectRef{Kind: "meeting", ID: "ghost"})
	if !errors.Is(err, ErrBindingNotFound) {
		t.Fatalf("expected ErrBindingNotFound, got %v", err)
	}
}

func TestMemoryBindingRepository_RebindAfterUnbind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBindingRepository()
	ref := SubjectRef{Kind: "meeting", ID: "1"}

	if err := repo.Bind(ctx, ref, "inst-1"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := repo.Unbind(ctx, ref); err != nil {
		t.Fatalf("Unbind failed: %v", err)
	}
	if err := repo.Bind(ctx, ref, "inst-2"); err != nil {
		t.Fatalf("re-Bind after unbind failed: %v", err)
	}
}
