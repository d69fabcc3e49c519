package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SierraSoftworks/automate/pkg/job"
	"github.com/SierraSoftworks/automate/pkg/storage"
)

// JobMetrics counts handled messages per partition.
type JobMetrics struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewJobMetrics registers the job counters on reg.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	m := &JobMetrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "automate_jobs_processed_total",
			Help: "Messages handled successfully, per queue partition.",
		}, []string{"partition"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "automate_jobs_failed_total",
			Help: "Messages whose handler returned an error, per queue partition.",
		}, []string{"partition"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "automate_job_duration_seconds",
			Help:    "Time spent handling one message.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"partition"}),
	}
	reg.MustRegister(m.processed, m.failed, m.duration)
	return m
}

// Observer returns the callback to pass to job.WithObserver.
func (m *JobMetrics) Observer() job.Observer {
	return func(partition string, err error, elapsed time.Duration) {
		if err != nil {
			m.failed.WithLabelValues(partition).Inc()
		} else {
			m.processed.WithLabelValues(partition).Inc()
		}
		m.duration.WithLabelValues(partition).Observe(elapsed.Seconds())
	}
}

var queueDepthDesc = prometheus.NewDesc(
	"automate_queue_messages",
	"Messages per queue partition, by delivery state.",
	[]string{"partition", "state"}, nil,
)

// StatsSource provides the per-partition message counts the queue collector
// exports. *storage.GormStore satisfies it.
type StatsSource interface {
	Stats(ctx context.Context) ([]storage.PartitionStats, error)
}

// QueueCollector exports live queue depth gauges, reading the store on every
// scrape.
type QueueCollector struct {
	source StatsSource
	errors prometheus.Counter
}

// NewQueueCollector creates a collector over source and registers it on reg.
func NewQueueCollector(reg prometheus.Registerer, source StatsSource) *QueueCollector {
	c := &QueueCollector{
		source: source,
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "automate_queue_scrape_errors_total",
			Help: "Failures reading queue stats during a scrape.",
		}),
	}
	reg.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector.
func (c *QueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- queueDepthDesc
	ch <- c.errors.Desc()
}

// Collect implements prometheus.Collector.
func (c *QueueCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.source.Stats(context.Background())
	if err != nil {
		c.errors.Inc()
	}
	ch <- c.errors
	if err != nil {
		return
	}

	for _, ps := range stats {
		ch <- prometheus.MustNewConstMetric(queueDepthDesc, prometheus.GaugeValue, float64(ps.Ready), ps.Partition, "ready")
		ch <- prometheus.MustNewConstMetric(queueDepthDesc, prometheus.GaugeValue, float64(ps.Reserved), ps.Partition, "reserved")
		ch <- prometheus.MustNewConstMetric(queueDepthDesc, prometheus.GaugeValue, float64(ps.Scheduled), ps.Partition, "scheduled")
	}
}
