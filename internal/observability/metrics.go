package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "where"

// Metrics holds the Prometheus counters, histograms, and gauges for region detection.
type Metrics struct {
	// Aggregator metrics.
	Observations    *prometheus.CounterVec   // labels: source
	Removals        *prometheus.CounterVec   // labels: source
	ProbeFailures   *prometheus.CounterVec   // labels: source, reason={no_data,permission_denied,unreachable,unrecognized,canceled,error}
	ProbeDuration   *prometheus.HistogramVec // labels: source
	SubscriberDrops prometheus.Counter
	DetectOptions   prometheus.Gauge

	// Lookup metrics.
	LookupCache *prometheus.CounterVec   // labels: cache={ip,geocode}, result={hit,miss}
	APIRequests *prometheus.CounterVec   // labels: api={ipapi,mapbox,dns}, outcome={success,error,empty}
	APIDuration *prometheus.HistogramVec // labels: api

	// Change publisher metrics.
	PublishedChanges prometheus.Counter
	PublishErrors    prometheus.Counter
	PublishBatchSize prometheus.Histogram
	PublisherRunning prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		Observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Observations recorded by source.",
		}, []string{"source"}),
		Removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Live observations cleared after a probe failure, by source.",
		}, []string{"source"}),
		ProbeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Probe runs that produced no observation, by source and reason.",
		}, []string{"source", "reason"}),
		ProbeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Duration of a single probe run.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		SubscriberDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_drops_total",
			Help:      "Change notifications dropped because a subscriber buffer was full.",
		}),
		DetectOptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detect_options",
			Help:      "Bitmask of the detection options currently applied.",
		}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_cache_total",
			Help:      "Lookup cache accesses by cache and result.",
		}, []string{"cache", "result"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "External lookup requests by api and outcome.",
		}, []string{"api", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_duration_seconds",
			Help:      "External lookup request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"api"}),
		PublishedChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_changes_total",
			Help:      "Change events written to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed Kafka batch writes.",
		}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_batch_size",
			Help:      "Number of change events per Kafka batch.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publisher_running",
			Help:      "1 when the change publisher is active, 0 when shut down.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Observations,
		m.Removals,
		m.ProbeFailures,
		m.ProbeDuration,
		m.SubscriberDrops,
		m.DetectOptions,
		m.LookupCache,
		m.APIRequests,
		m.APIDuration,
		m.PublishedChanges,
		m.PublishErrors,
		m.PublishBatchSize,
		m.PublisherRunning,
	}
}
