package workflow

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetrics_NilIsSafeEverywhere(t *testing.T) {
	var m *Metrics
	m.observeInstanceOp("apply_command", time.Millisecond)
}

func TestMetrics_RegistersUnderFreshRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.commandsApplied.Inc()
	if got := counterValue(t, m.commandsApplied); got != 1 {
		t.Fatalf("expected commandsApplied == 1, got %v", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestMetrics_ObserveInstanceOpRecordsDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.observeInstanceOp("apply_command", 5*time.Millisecond)

	var metric dto.Metric
	if err := m.instanceOpDurations.WithLabelValues("apply_command").(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("reading histogram: %v", err)
	}
	if metric.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected 1 sample recorded, got %d", metric.GetHistogram().GetSampleCount())
	}
}

func TestMetrics_CheckpointRestoresPartitionedByDirection(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.checkpointRestores.WithLabelValues(string(DirectionRollback)).Inc()
	m.checkpointRestores.WithLabelValues(string(DirectionRollforward)).Inc()
	m.checkpointRestores.WithLabelValues(string(DirectionRollforward)).Inc()

	rollbackCounter := m.checkpointRestores.WithLabelValues(string(DirectionRollback)).(prometheus.Counter)
	rollforwardCounter := m.checkpointRestores.WithLabelValues(string(DirectionRollforward)).(prometheus.Counter)

	if got := counterValue(t, rollbackCounter); got != 1 {
		t.Fatalf("expected rollback count 1, got %v", got)
	}
	if got := counterValue(t, rollforwardCounter); got != 2 {
		t.Fatalf("expected rollforward count 2, got %v", got)
	}
}
