package metrics

import "github.com/prometheus/client_golang/prometheus"

// InventoryMetrics counts data-integrity anomalies seen by the inventory service,
// such as a business key matching more than one row for the same owner.
type InventoryMetrics struct {
	anomalies *prometheus.CounterVec
}

func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	anomalies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_key_anomalies_total",
		Help: "Inventory operations whose business key matched more than one item.",
	}, []string{"operation"})
	reg.MustRegister(anomalies)
	return &InventoryMetrics{anomalies: anomalies}
}

func (m *InventoryMetrics) IncAnomaly(operation string) {
	if m == nil || m.anomalies == nil {
		return
	}
	m.anomalies.WithLabelValues(normalizeLabel(operation)).Inc()
}
