package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		mandateOperationsTotal,
		mandatesTotal,
	)
}

var (
	mandateOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandate_operations_total",
			Help: "Mandate lifecycle operations by operation and outcome.",
		},
		[]string{"operation", "status"}, // operation: 'create'|'activate'|'cancel', status: 'ok'|'conflict'|'error'
	)

	mandatesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mandates_total",
			Help: "Current number of mandates by status.",
		},
		[]string{"status"}, // 'pending', 'active', 'canceled'
	)
)

func IncMandateOperation(operation, status string) {
	mandateOperationsTotal.WithLabelValues(norm(operation), norm(status)).Inc()
}

func SetMandatesTotal(status string, count int) {
	mandatesTotal.WithLabelValues(norm(status)).Set(float64(count))
}
