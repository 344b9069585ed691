package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeLocal      = "local"
	outcomeSynced     = "synced"
	outcomeRolledBack = "rolled_back"
	outcomeFailed     = "failed"
)

// Metrics счётчики операций хранилища.
type Metrics struct {
	operations *prometheus.CounterVec
	reconciled prometheus.Counter
}

// NewMetrics создаёт счётчики и регистрирует их в reg. При reg == nil
// счётчики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sublist",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		reconciled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sublist",
			Subsystem: "store",
			Name:      "reconciled_records_total",
			Help:      "Local-only records moved to an account on login.",
		}),
	}
}

func (m *Metrics) observe(op, outcome string) {
	m.operations.WithLabelValues(op, outcome).Inc()
}
