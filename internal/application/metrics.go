package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
)

// Metrics holds the Prometheus counters for onboarding. A nil *Metrics is a no-op.
type Metrics struct {
	SignUps            *prometheus.CounterVec
	Dispatches         *prometheus.CounterVec
	Verifications      *prometheus.CounterVec
	InconsistentStates prometheus.Counter
	Reconciled         *prometheus.CounterVec
}

// NewMetrics registers the counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SignUps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reach_identity_signups_total",
			Help: "Identities that entered the pending state",
		}, []string{"kind"}),
		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reach_identity_code_dispatches_total",
			Help: "Verification code dispatches by channel and outcome",
		}, []string{"kind", "channel", "outcome"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reach_identity_verifications_total",
			Help: "Verification attempts by outcome",
		}, []string{"kind", "outcome"}),
		InconsistentStates: f.NewCounter(prometheus.CounterOpts{
			Name: "reach_identity_inconsistent_states_total",
			Help: "Registrations left durable but unreachable for verification",
		}),
		Reconciled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reach_identity_reconciled_total",
			Help: "Pending entries repaired by the reconciliation sweep",
		}, []string{"action"}),
	}
}

func (m *Metrics) signUp(kind entity.Kind) {
	if m != nil {
		m.SignUps.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) dispatch(kind entity.Kind, ch Channel, outcome string) {
	if m != nil {
		m.Dispatches.WithLabelValues(kind.String(), string(ch), outcome).Inc()
	}
}

func (m *Metrics) verification(kind entity.Kind, outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(kind.String(), outcome).Inc()
	}
}

func (m *Metrics) inconsistent() {
	if m != nil {
		m.InconsistentStates.Inc()
	}
}

func (m *Metrics) reconciled(action string, n int) {
	if m != nil && n > 0 {
		m.Reconciled.WithLabelValues(action).Add(float64(n))
	}
}
