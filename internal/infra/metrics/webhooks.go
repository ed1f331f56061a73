package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsReceivedTotal,
		notificationsProcessedTotal,
		notificationVerifyTotal,
		rewardJobsTotal,
	)
}

var (
	notificationsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_received_total",
			Help: "Processor notifications ingested, labeled by txn_type.",
		},
		[]string{"txn_type"},
	)

	notificationsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_processed_total",
			Help: "Processor notifications dispatched, labeled by txn_type and outcome.",
		},
		[]string{"txn_type", "status"}, // status: 'ok', 'error', 'skipped'
	)

	notificationVerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_verify_total",
			Help: "Postback verification results for notifications.",
		},
		[]string{"result"}, // 'verified', 'invalid', 'error'
	)

	rewardJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_jobs_total",
			Help: "Reward jobs enqueued to the delayed-job queue by outcome.",
		},
		[]string{"status"}, // 'ok', 'error'
	)
)

func IncNotificationReceived(txnType string) {
	notificationsReceivedTotal.WithLabelValues(norm(txnType)).Inc()
}

func IncNotificationProcessed(txnType, status string) {
	notificationsProcessedTotal.WithLabelValues(norm(txnType), norm(status)).Inc()
}

func IncNotificationVerify(result string) {
	notificationVerifyTotal.WithLabelValues(norm(result)).Inc()
}

func IncRewardJob(status string) {
	rewardJobsTotal.WithLabelValues(norm(status)).Inc()
}
