// Package metrics exposes statekeepd's Prometheus instrumentation:
// RPC counters/latencies, registry/engine gauges, and — when the pebble
// backend is active — gauges sourced from pebble.Metrics(). The shape
// (package-level vars registered in init, a ticker-driven Collector, an
// http.Handler for /metrics) is the standard Prometheus client_golang idiom.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statekeep_rpc_requests_total",
			Help: "Total number of RPCs handled, by method and status.",
		},
		[]string{"method", "status"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statekeep_rpc_request_duration_seconds",
			Help:    "RPC handling duration in seconds, by method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RPCInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statekeep_rpc_in_flight",
			Help: "Number of RPCs currently being handled.",
		},
	)

	AppsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statekeep_apps_loaded",
			Help: "Number of apps with a live registry entry.",
		},
	)

	CheckpointsPerApp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statekeep_checkpoints_per_app",
			Help: "Number of checkpoints currently retained, by app.",
		},
		[]string{"app"},
	)

	CheckpointsDecayRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "statekeep_checkpoints_decay_removed_total",
			Help: "Total number of checkpoints dropped by the exponential-decay retention policy.",
		},
	)

	ModificationsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statekeep_modifications_total",
			Help: "Current modifications counter value, by app.",
		},
		[]string{"app"},
	)

	// Pebble-backend-only gauges, left at zero when memfs is in use.
	PebbleCacheBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statekeep_pebble_cache_bytes",
			Help: "Size of the shared pebble block cache, in bytes.",
		},
	)

	PebbleMemTableBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statekeep_pebble_memtable_bytes",
			Help: "Size of pebble's in-memory memtables, in bytes, as reported by the most recent statistics poll of any one pebble backend (not summed across apps).",
		},
	)

	PebbleCompactionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statekeep_pebble_compactions_total",
			Help: "Total number of pebble compactions, summed across apps.",
		},
	)

	PebbleFlushesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statekeep_pebble_flushes_total",
			Help: "Total number of pebble memtable flushes, summed across apps.",
		},
	)

	PebbleSSTables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statekeep_pebble_sstables",
			Help: "Number of live pebble SSTables, as reported by the most recent statistics poll of any one pebble backend (not summed across apps).",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RPCRequestsTotal,
		RPCRequestDuration,
		RPCInFlight,
		AppsLoaded,
		CheckpointsPerApp,
		CheckpointsDecayRemovedTotal,
		ModificationsTotal,
		PebbleCacheBytes,
		PebbleMemTableBytes,
		PebbleCompactionsTotal,
		PebbleFlushesTotal,
		PebbleSSTables,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times a single operation for later recording to a histogram.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
