// Package metrics exposes the Prometheus counters and histograms backing
// C12: per-cache read/write throughput and latency, surfaced both on the
// /metrics endpoint and (as a one-line summary) in Response.metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storeReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reed_store_reads_total",
			Help: "Total number of Store read operations",
		},
		[]string{"cache", "source"},
	)

	storeReadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reed_store_read_duration_seconds",
			Help:    "Store read latency in seconds",
			Buckets: []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .01},
		},
		[]string{"cache"},
	)

	storeWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reed_store_writes_total",
			Help: "Total number of Store write operations",
		},
		[]string{"cache", "result"},
	)

	storeWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reed_store_write_duration_seconds",
			Help:    "Store write latency in seconds, including backup and atomic rename",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"cache"},
	)

	backupsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reed_backup_writes_total",
			Help: "Total number of compressed backup snapshots written",
		},
		[]string{"file"},
	)

	backupPruneTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reed_backup_pruned_total",
			Help: "Total number of backup files removed by retention pruning",
		},
		[]string{"file"},
	)

	decisionCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reed_permission_decision_cache_total",
			Help: "Total number of permission checks by decision-cache outcome",
		},
		[]string{"result"},
	)
)

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRead increments the read counter for cache and observes its
// latency. source is the read outcome as tagged by the Store: "cache" for
// a hit, "miss" otherwise.
func RecordRead(cache, source string, d time.Duration) {
	storeReadsTotal.WithLabelValues(cache, source).Inc()
	storeReadDuration.WithLabelValues(cache).Observe(d.Seconds())
}

// RecordWrite increments the write counter for cache and observes its
// latency. result is "ok" or "error".
func RecordWrite(cache, result string, d time.Duration) {
	storeWritesTotal.WithLabelValues(cache, result).Inc()
	storeWriteDuration.WithLabelValues(cache).Observe(d.Seconds())
}

// RecordBackupWritten increments the backup-write counter for file.
func RecordBackupWritten(file string) {
	backupsWrittenTotal.WithLabelValues(file).Inc()
}

// RecordBackupsPruned increments the backup-prune counter for file by n.
func RecordBackupsPruned(file string, n int) {
	if n <= 0 {
		return
	}
	backupPruneTotal.WithLabelValues(file).Add(float64(n))
}

// RecordDecision records whether a permission check was served from the
// decision cache ("hit") or recomputed ("miss").
func RecordDecision(result string) {
	decisionCacheHitsTotal.WithLabelValues(result).Inc()
}

// CacheInfo renders the one-line cache/hit-or-miss summary used in
// Response.metrics.cache_info.
func CacheInfo(cache, source string, cached bool) string {
	return fmt.Sprintf("%s:%s cached=%t", cache, source, cached)
}
