package finalized

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusCommittedBlocks prometheus.Counter
	prometheusCommittedHeight prometheus.Gauge
	prometheusRejectedBlocks  prometheus.Counter
	prometheusQueuedBlocks    prometheus.Gauge
	prometheusPendingUtxos    prometheus.Gauge
	prometheusCommitDuration  prometheus.Histogram
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusCommittedBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "state_committed_block_count",
			Help: "Number of blocks committed to the finalized state",
		},
	)
	prometheusCommittedHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "state_committed_block_height",
			Help: "Height of the finalized tip",
		},
	)
	prometheusRejectedBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "state_rejected_block_count",
			Help: "Number of blocks whose commit failed",
		},
	)
	prometheusQueuedBlocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "state_queued_block_count",
			Help: "Number of blocks waiting for their parent to be committed",
		},
	)
	prometheusPendingUtxos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "state_pending_utxo_count",
			Help: "Number of outpoints callers are waiting on",
		},
	)
	prometheusCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "state_commit_duration_seconds",
			Help:    "Time taken to write one block to the index store",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
}
