// Package metrics exposes sticker pipeline measurements to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stickerforge"

// Collector records batch and job lifecycle metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	batchesStarted prometheus.Counter
	jobsStarted    prometheus.Counter
	jobsCompleted  prometheus.Counter
	jobsFailed     *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	jobsInProgress prometheus.Gauge
	batchSize      prometheus.Histogram
}

// NewCollector registers all metrics plus the Go and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		batchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_started_total",
			Help:      "Number of sticker batches started.",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Number of job attempts started, including retries.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Number of job attempts that produced a sticker.",
		}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Number of failed job attempts by reason.",
		}, []string{"reason"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time spent generating and compositing one sticker.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		jobsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_progress",
			Help:      "Job attempts currently generating.",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of labels per started batch.",
			Buckets:   prometheus.LinearBuckets(5, 5, 8),
		}),
	}
	c.registry.MustRegister(
		c.batchesStarted,
		c.jobsStarted,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobDuration,
		c.jobsInProgress,
		c.batchSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) BatchStarted(jobs int) {
	c.batchesStarted.Inc()
	c.batchSize.Observe(float64(jobs))
}

func (c *Collector) JobStarted() {
	c.jobsStarted.Inc()
	c.jobsInProgress.Inc()
}

func (c *Collector) JobCompleted(elapsed time.Duration) {
	c.jobsCompleted.Inc()
	c.jobsInProgress.Dec()
	c.jobDuration.Observe(elapsed.Seconds())
}

func (c *Collector) JobFailed(reason string, elapsed time.Duration) {
	if reason == "" {
		reason = "unknown"
	}
	c.jobsFailed.WithLabelValues(reason).Inc()
	c.jobsInProgress.Dec()
	c.jobDuration.Observe(elapsed.Seconds())
}
