package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ledgerOpsTotal) }

var ledgerOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Completed ledger operations by kind (transfer/refund/convert_balance).",
	},
	[]string{"op"},
)

func IncLedgerOp(op string) {
	ledgerOpsTotal.WithLabelValues(norm(op)).Inc()
}
