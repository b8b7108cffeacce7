package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a Prometheus-backed collector for WorkflowInstance operations:
// applying commands, evaluating guards, and saving
// or navigating checkpoints. A nil *Metrics is valid everywhere it is
// used — every call site checks for nil before touching it — so wiring
// metrics is opt-in, not a constructor requirement.
type Metrics struct {
	commandsApplied     prometheus.Counter
	guardFailures       prometheus.Counter
	checkpointsSaved    prometheus.Counter
	checkpointRestores  *prometheus.CounterVec
	invalidTransitions  prometheus.Counter
	instanceOpDurations *prometheus.HistogramVec
}

// NewMetrics registers and returns a Metrics collector on registry. Passing
// nil uses prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		commandsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "commands_applied_total",
			Help:      "Commands successfully applied to workflow instances",
		}),
		guardFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "guard_failures_total",
			Help:      "Commands rejected because their guard returned false or panicked",
		}),
		checkpointsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "checkpoints_saved_total",
			Help:      "Checkpoints saved across all workflow instances",
		}),
		checkpointRestores: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "checkpoint_restores_total",
			Help:      "Checkpoint restores, partitioned by direction",
		}, []string{"direction"}),
		invalidTransitions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "invalid_transitions_total",
			Help:      "Commands rejected because no transition exists for the current step",
		}),
		instanceOpDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "instance_operation_duration_seconds",
			Help:      "Wall-clock duration of WorkflowInstance operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) observeInstanceOp(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.instanceOpDurations.WithLabelValues(operation).Observe(d.Seconds())
}
