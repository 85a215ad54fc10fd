package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.GaugeVec
	stale    *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// SetEntityRows records how many entries of one entity type the last run
// fetched and stored.
func (m *Metrics) SetEntityRows(entity string, found, stored int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(entity, "found").Set(float64(found))
	m.rows.WithLabelValues(entity, "stored").Set(float64(stored))
}

// SetLifecycleRows records how many rows the last run marked stale and
// purged per table.
func (m *Metrics) SetLifecycleRows(table string, marked, purged int64) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(table, "marked").Set(float64(marked))
	m.stale.WithLabelValues(table, "purged").Set(float64(purged))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roleviz_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roleviz_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roleviz_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roleviz_sync_entries",
		Help: "Directory entries seen by the last reconciliation run per entity type.",
	}, []string{"entity", "stage"})
	stale := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roleviz_sync_lifecycle_rows",
		Help: "Rows marked stale or purged by the last reconciliation run per table.",
	}, []string{"table", "action"})
	registerer.MustRegister(runs, failures, duration, rows, stale)
	return &Metrics{runs: runs, failures: failures, duration: duration, rows: rows, stale: stale}
}
