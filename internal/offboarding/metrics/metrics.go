package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeSkipped   = "skipped"
	OutcomeCompleted = "completed"
)

type Metrics struct {
	Tasks              *prometheus.CounterVec
	WorkflowsCompleted prometheus.Counter
	OpenWorkflows      prometheus.Gauge
}

// New registers the offboarding metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "people_offboarding_tasks_total",
			Help: "Resolved offboarding tasks by automation kind and outcome",
		}, []string{"kind", "outcome"}),
		WorkflowsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "people_offboarding_workflows_completed_total",
			Help: "Offboarding workflows that reached COMPLETED",
		}),
		OpenWorkflows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "people_offboarding_open_workflows",
			Help: "Offboarding workflows in PENDING or IN_PROGRESS",
		}),
	}
}

// IncTask counts a resolved task. Manual tasks are labelled "manual".
func (m *Metrics) IncTask(kind, outcome string) {
	if kind == "" {
		kind = "manual"
	}
	m.Tasks.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncCompleted() {
	m.WorkflowsCompleted.Inc()
}

func (m *Metrics) SetOpen(n int) {
	m.OpenWorkflows.Set(float64(n))
}
