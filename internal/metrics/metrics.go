// Package metrics counts fetch and pipeline activity. Every counter is
// mirrored in a plain map snapshot so the monitor can report progress
// without scraping, and optionally exported in Prometheus format.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot map keys.
const (
	KeyFetchAttempts    = "fetch_attempts"
	KeyFetchSuccess     = "fetch_success"
	KeyFetchNotModified = "fetch_not_modified"
	KeyFetchFailures    = "fetch_failures"
	KeyFetchRetries     = "fetch_retries"
	KeyNewEvents        = "new_events"
	KeySnapshotsSaved   = "snapshots_saved"
)

// Collector accumulates pipeline counters. The zero value is not usable;
// construct with New or Disabled.
type Collector struct {
	mu     sync.Mutex
	counts map[string]int64

	registry *prometheus.Registry

	fetchAttempts    *prometheus.CounterVec
	fetchSuccess     *prometheus.CounterVec
	fetchNotModified *prometheus.CounterVec
	fetchFailures    *prometheus.CounterVec
	fetchRetries     *prometheus.CounterVec
	newEvents        prometheus.Counter
	snapshotsSaved   prometheus.Counter
	iterationSeconds prometheus.Histogram
}

// New returns a collector with Prometheus instruments registered on a
// private registry, ready for Handler.
func New() *Collector {
	c := &Collector{
		counts:   make(map[string]int64),
		registry: prometheus.NewRegistry(),
	}

	counter := func(name, help string) *prometheus.CounterVec {
		v := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trend_monitor",
			Name:      name,
			Help:      help,
		}, []string{"source"})
		c.registry.MustRegister(v)
		return v
	}

	c.fetchAttempts = counter("fetch_attempts_total", "Fetch attempts per source, retries included.")
	c.fetchSuccess = counter("fetch_success_total", "Fetches that returned items.")
	c.fetchNotModified = counter("fetch_not_modified_total", "Conditional fetches answered with 304.")
	c.fetchFailures = counter("fetch_failures_total", "Fetches that exhausted their retries.")
	c.fetchRetries = counter("fetch_retries_total", "Retry sleeps taken before a fetch attempt.")

	c.newEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trend_monitor",
		Name:      "new_events_total",
		Help:      "Items admitted past deduplication.",
	})
	c.snapshotsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trend_monitor",
		Name:      "snapshots_saved_total",
		Help:      "Trend snapshots persisted to storage.",
	})
	c.iterationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trend_monitor",
		Name:      "iteration_duration_seconds",
		Help:      "Wall time of one monitor update cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	c.registry.MustRegister(c.newEvents, c.snapshotsSaved, c.iterationSeconds)

	return c
}

// Disabled returns a collector that keeps the snapshot map but registers
// no Prometheus instruments. Used when the exporter port is off.
func Disabled() *Collector {
	return &Collector{counts: make(map[string]int64)}
}

func (c *Collector) bump(key string, n int64) {
	c.mu.Lock()
	c.counts[key] += n
	c.mu.Unlock()
}

func (c *Collector) RecordFetchAttempt(sourceName string) {
	c.bump(KeyFetchAttempts, 1)
	if c.fetchAttempts != nil {
		c.fetchAttempts.WithLabelValues(sourceName).Inc()
	}
}

// RecordFetchSuccess counts a completed fetch. The conditional 304 case
// goes to fetch_not_modified only; the two counters are mutually
// exclusive.
func (c *Collector) RecordFetchSuccess(sourceName string, notModified bool) {
	if notModified {
		c.bump(KeyFetchNotModified, 1)
		if c.fetchNotModified != nil {
			c.fetchNotModified.WithLabelValues(sourceName).Inc()
		}
		return
	}
	c.bump(KeyFetchSuccess, 1)
	if c.fetchSuccess != nil {
		c.fetchSuccess.WithLabelValues(sourceName).Inc()
	}
}

func (c *Collector) RecordFetchFailure(sourceName string) {
	c.bump(KeyFetchFailures, 1)
	if c.fetchFailures != nil {
		c.fetchFailures.WithLabelValues(sourceName).Inc()
	}
}

func (c *Collector) RecordFetchRetry(sourceName string) {
	c.bump(KeyFetchRetries, 1)
	if c.fetchRetries != nil {
		c.fetchRetries.WithLabelValues(sourceName).Inc()
	}
}

func (c *Collector) RecordNewEvents(n int) {
	if n <= 0 {
		return
	}
	c.bump(KeyNewEvents, int64(n))
	if c.newEvents != nil {
		c.newEvents.Add(float64(n))
	}
}

func (c *Collector) RecordSnapshotSaved() {
	c.bump(KeySnapshotsSaved, 1)
	if c.snapshotsSaved != nil {
		c.snapshotsSaved.Inc()
	}
}

func (c *Collector) RecordIterationDuration(seconds float64) {
	if c.iterationSeconds != nil {
		c.iterationSeconds.Observe(seconds)
	}
}

// Snapshot returns a copy of the counter map.
func (c *Collector) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
