package workflow

import (
	"testing"
	"time"
)

func TestCheckpoint_FieldsRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cp := Checkpoint{
		ID:        "cp-1",
		Label:     "before approval",
		Step:      "draft",
		Data:      Bag{"x": 1},
		CreatedAt: now,
	}

	if cp.ID != "cp-1" || cp.Label != "before approval" || cp.Step != "draft" {
		t.Fatalf("unexpected checkpoint fields: %+v", cp)
	}
	if !cp.CreatedAt.Equal(now) {
		t.Fatalf("expected CreatedAt %v, got %v", now, cp.CreatedAt)
	}
	if cp.Data["x"] != 1 {
		t.Fatalf("expected data to round trip, got %v", cp.Data)
	}
}
