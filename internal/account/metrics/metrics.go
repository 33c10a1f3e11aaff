package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomePending  = "pending"
	OutcomeFailure  = "failure"
	OutcomeDisabled = "disabled"
	OutcomeSkipped  = "skipped"
)

// Metrics tracks provisioning outcomes and connector latency.
type Metrics struct {
	Provisioned       *prometheus.CounterVec
	Deprovisioned     *prometheus.CounterVec
	ConnectorDuration *prometheus.HistogramVec
	ConnectionHealthy *prometheus.GaugeVec
}

// New registers the account metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Provisioned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "people_accounts_provision_total",
			Help: "Provision attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		Deprovisioned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "people_accounts_deprovision_total",
			Help: "Deprovision attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		ConnectorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "people_connector_call_duration_seconds",
			Help:    "Duration of connector calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "op"}),
		ConnectionHealthy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "people_connection_healthy",
			Help: "1 when the last connection test of an integration passed",
		}, []string{"integration"}),
	}
}

func (m *Metrics) IncProvision(provider, outcome string) {
	m.Provisioned.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) IncDeprovision(provider, outcome string) {
	m.Deprovisioned.WithLabelValues(provider, outcome).Inc()
}

// ObserveConnectorCall records a call started at start.
func (m *Metrics) ObserveConnectorCall(provider, op string, start time.Time) {
	m.ConnectorDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetConnectionHealth(integrationID string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	m.ConnectionHealthy.WithLabelValues(integrationID).Set(v)
}
