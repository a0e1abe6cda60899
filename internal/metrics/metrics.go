// Package metrics registers the gauges and counters an embedding binary
// can mount on its own HTTP server (SPEC_FULL §B.9). No server is
// started here; that belongs to the out-of-scope CLI/telemetry wrapper.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every metric this module exposes.
type Registry struct {
	QueueDepth    prometheus.Gauge
	Hashrate      prometheus.Gauge
	CurrentEpoch  prometheus.Gauge
	CurrentPhase  *prometheus.GaugeVec
	RetryCount    prometheus.Counter
	TxSuccesses   *prometheus.CounterVec
	TxFailures    *prometheus.CounterVec
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "powminer", Name: "queue_depth",
			Help: "Number of transactions pending or processing in the transaction manager queue.",
		}),
		Hashrate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "powminer", Name: "hashrate",
			Help: "One-minute moving-average hashes-per-second estimate from the mining engine.",
		}),
		CurrentEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "powminer", Name: "current_epoch",
			Help: "Most recently observed epoch number.",
		}),
		CurrentPhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "powminer", Name: "current_phase",
			Help: "1 for the currently observed chain phase, 0 otherwise.",
		}, []string{"phase"}),
		RetryCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "powminer", Name: "tx_retries_total",
			Help: "Total transaction submission retries across all kinds.",
		}),
		TxSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powminer", Name: "tx_successes_total",
			Help: "Total successful on-chain transactions by kind.",
		}, []string{"kind"}),
		TxFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powminer", Name: "tx_failures_total",
			Help: "Total terminally failed transactions by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(r.QueueDepth, r.Hashrate, r.CurrentEpoch, r.CurrentPhase, r.RetryCount, r.TxSuccesses, r.TxFailures)
	return r
}
