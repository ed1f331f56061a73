package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chargesTotal,
		chargeRevenueTotal,
		chargeDuration,
		provisioningErrorsTotal,
	)
}

var (
	chargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charges_total",
			Help: "Reference-transaction charges by outcome.",
		},
		[]string{"status"}, // 'completed', 'pending', 'failed'
	)

	chargeRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charge_revenue_total",
			Help: "The total monetary value of settled charges, labeled by currency.",
		},
		[]string{"currency"},
	)

	chargeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charge_duration_seconds",
			Help:    "End-to-end duration of the charge pipeline in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"status"},
	)

	provisioningErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provisioning_errors_total",
			Help: "Charges that settled at the processor but failed to credit the wallet.",
		},
	)
)

func IncCharge(status string) {
	chargesTotal.WithLabelValues(norm(status)).Inc()
}

func AddChargeRevenue(currency string, amount float64) {
	chargeRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}

func ObserveChargeDuration(status string, seconds float64) {
	chargeDuration.WithLabelValues(norm(status)).Observe(seconds)
}

func IncProvisioningError() {
	provisioningErrorsTotal.Inc()
}
