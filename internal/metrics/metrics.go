// Package metrics collects Prometheus metrics for job runs and the shared
// engine context. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for job invocations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds the gokite collectors on a private registry.
type Collector struct {
	registry *prometheus.Registry

	jobInvocations   *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	viewsResolved    *prometheus.CounterVec
	contextsCreated  prometheus.Counter
	shutdownTimeouts prometheus.Counter
}

// NewCollector creates a collector with its own registry, so several
// collectors can live in one process (tests, backfills).
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gokite_job_invocations_total",
			Help: "Total number of job invocations by outcome",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gokite_job_duration_seconds",
			Help:    "Job run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		viewsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gokite_views_resolved_total",
			Help: "Total number of view addresses bound to job slots",
		}, []string{"direction"}),
		contextsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gokite_engine_contexts_created_total",
			Help: "Total number of shared engine contexts created",
		}),
		shutdownTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gokite_engine_shutdown_timeouts_total",
			Help: "Total number of streaming stops abandoned after the shutdown wait",
		}),
	}

	c.registry.MustRegister(
		c.jobInvocations,
		c.jobDuration,
		c.viewsResolved,
		c.contextsCreated,
		c.shutdownTimeouts,
	)
	return c
}

// Registry exposes the underlying registry for gathering.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordJob records one finished invocation.
func (c *Collector) RecordJob(job string, d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.jobInvocations.WithLabelValues(job, outcome).Inc()
	c.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// RecordViews adds n resolved addresses for the given direction.
func (c *Collector) RecordViews(direction string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.viewsResolved.WithLabelValues(direction).Add(float64(n))
}

// RecordContextCreated counts a new shared engine context.
func (c *Collector) RecordContextCreated() {
	if c == nil {
		return
	}
	c.contextsCreated.Inc()
}

// RecordShutdownTimeout counts a streaming stop that did not finish in time.
func (c *Collector) RecordShutdownTimeout() {
	if c == nil {
		return
	}
	c.shutdownTimeouts.Inc()
}

// WriteTextfile writes the current values in the text exposition format, for
// pickup by a node exporter textfile collector after a single-shot run.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
