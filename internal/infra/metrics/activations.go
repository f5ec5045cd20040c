package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		parcelActivationsTotal,
		activationSweepRetriesTotal,
	)
}

var (
	parcelActivationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "parcel_activations_total",
			Help: "Parcels activated by a validated access-right payment.",
		},
	)

	activationSweepRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_sweep_retries_total",
			Help: "Activations retried by the out-of-band sweep.",
		},
	)
)

func IncParcelActivation() { parcelActivationsTotal.Inc() }

func IncActivationSweepRetry() { activationSweepRetriesTotal.Inc() }
