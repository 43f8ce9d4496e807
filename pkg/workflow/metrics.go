package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as the "outcome" label.
const (
	outcomeCompleted   = "completed"
	outcomeModelFailed = "model_failed"
	outcomeSaveFailed  = "save_failed"
	outcomeInvalid     = "invalid_state"
	outcomeCancelled   = "cancelled"
)

// Metrics holds workflow collectors. A nil *Metrics records nothing.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	cyclesTotal  prometheus.Counter
}

// NewMetrics registers the workflow collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_runs_total",
				Help: "Workflow runs by outcome",
			},
			[]string{"outcome"},
		),
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_steps_total",
				Help: "Node executions by node",
			},
			[]string{"step"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workflow_step_duration_seconds",
				Help:    "Node execution time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		cyclesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "workflow_code_saves_total",
				Help: "Completed plan and save cycles",
			},
		),
	}
}

func (m *Metrics) observeStep(step Node, d time.Duration) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(string(step)).Inc()
	m.stepDuration.WithLabelValues(string(step)).Observe(d.Seconds())
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSave() {
	if m == nil {
		return
	}
	m.cyclesTotal.Inc()
}
