package metrics

import "github.com/prometheus/client_golang/prometheus"

// Auth gate outcomes.
const (
	OutcomeAuthenticated   = "authenticated"
	OutcomeMissing         = "missing_credentials"
	OutcomeExpired         = "expired"
	OutcomeInvalid         = "invalid"
	OutcomeMalformed       = "malformed"
	OutcomeSubjectNotFound = "subject_not_found"
	OutcomeError           = "error"
)

// AuthMetrics counts auth gate decisions.
type AuthMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	if reg == nil {
		return &AuthMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_gate_outcomes_total",
		Help: "Auth gate decisions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &AuthMetrics{outcomes: outcomes}
}

func (m *AuthMetrics) Inc(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
