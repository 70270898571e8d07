package training

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry holds the training loop's Prometheus instruments. The registry
// is owned by the caller so tests can use their own.
type Telemetry struct {
	ExamplesFetched prometheus.Counter
	BatchesTotal    prometheus.Counter
	FetchErrors     prometheus.Counter
	EpochDuration   prometheus.Histogram
}

// NewTelemetry creates and registers the training instruments.
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		ExamplesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sed_examples_fetched_total",
			Help: "Examples fetched by the batch loader.",
		}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sed_batches_total",
			Help: "Batches processed across all epochs.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sed_fetch_errors_total",
			Help: "Example fetches that failed and aborted their batch.",
		}),
		EpochDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sed_epoch_duration_seconds",
			Help:    "Wall time per training epoch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(t.ExamplesFetched, t.BatchesTotal, t.FetchErrors, t.EpochDuration)
	}
	return t
}
