package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outage_tracker"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	EventWrites      *prometheus.CounterVec // labels: op={create,update,delete}
	ValidationErrors *prometheus.CounterVec // labels: reason
	CollectionSize   prometheus.Gauge

	// Event store metrics.
	StoreOperations *prometheus.CounterVec   // labels: op={load,save}, outcome={success,error}
	StoreDuration   *prometheus.HistogramVec // labels: op={load,save}

	// Change feed metrics.
	ChangesPublished prometheus.Counter
	ChangesDropped   prometheus.Counter
	PublishErrors    prometheus.Counter
	FeedRunning      prometheus.Gauge
	FeedBatchSize    prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.EventWrites,
		m.ValidationErrors,
		m.CollectionSize,
		m.StoreOperations,
		m.StoreDuration,
		m.ChangesPublished,
		m.ChangesDropped,
		m.PublishErrors,
		m.FeedRunning,
		m.FeedBatchSize,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		EventWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_writes_total",
			Help:      help("Successful event writes by operation."),
		}, []string{"op"}),
		ValidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      help("Rejected drafts by reason."),
		}, []string{"reason"}),
		CollectionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_size",
			Help:      help("Number of events in the collection after the last load or save."),
		}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      help("Event store operations by kind and outcome."),
		}, []string{"op", "outcome"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      help("Duration of event store loads and saves."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
		ChangesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_published_total",
			Help:      help("Change records written to the change feed."),
		}),
		ChangesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_dropped_total",
			Help:      help("Change records dropped because the feed queue was full."),
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      help("Failed change feed publish attempts."),
		}),
		FeedRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_running",
			Help:      help("1 when the change feed is active, 0 when shut down."),
		}),
		FeedBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_batch_size",
			Help:      help("Number of change records per published batch."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Geocoding API requests by method and outcome."),
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocoding cache lookups by method and result."),
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("Mapbox API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when geocoding enrichment is enabled, 0 otherwise."),
		}),
	}
}
