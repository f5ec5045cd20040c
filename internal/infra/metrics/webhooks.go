package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		webhookDuplicatesTotal,
		reconcileAnomaliesTotal,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Gateway events by reconciliation outcome (applied/replay/pending/unmatched).",
		},
		[]string{"outcome"},
	)

	webhookDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_duplicates_total",
			Help: "Deliveries short-circuited by the event log before reconciliation.",
		},
	)

	reconcileAnomaliesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_anomalies_total",
			Help: "Gateway events contradicting an already-terminal payment state.",
		},
	)
)

func IncWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookDuplicate() { webhookDuplicatesTotal.Inc() }

func IncReconcileAnomaly() { reconcileAnomaliesTotal.Inc() }
