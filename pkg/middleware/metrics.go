package middleware

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/signaltower/pkg/tower"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "tower").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "tower",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a tower.Observer that records Prometheus metrics.
type Metrics struct {
	channelsCreated  prometheus.Counter
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	subscribers      *prometheus.GaugeVec
	faultsTotal      *prometheus.CounterVec
}

// defaultMetrics is shared by every observer registered on the default
// registerer, which rejects duplicate registrations.
var (
	defaultMetrics   *Metrics
	defaultMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *Metrics {
	factory := promauto.With(config.Registry)

	return &Metrics{
		channelsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "channels_created_total",
			Help:        "Total number of channels registered",
			ConstLabels: config.ConstLabels,
		}),

		dispatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_total",
			Help:        "Total number of dispatches by channel",
			ConstLabels: config.ConstLabels,
		}, []string{"channel"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent delivering a dispatch to all subscribers",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"channel"}),

		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Current number of subscribers by channel",
			ConstLabels: config.ConstLabels,
		}, []string{"channel"}),

		faultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscriber_faults_total",
			Help:        "Total number of recovered subscriber panics by channel",
			ConstLabels: config.ConstLabels,
		}, []string{"channel"}),
	}
}

// Prometheus creates an observer that records channel metrics.
//
// Observers created without WithRegistry share one set of metrics on
// prometheus.DefaultRegisterer.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Registry != prometheus.DefaultRegisterer {
		return initMetrics(config)
	}

	defaultMetricsMu.Lock()
	defer defaultMetricsMu.Unlock()
	if defaultMetrics == nil {
		defaultMetrics = initMetrics(config)
	}
	return defaultMetrics
}

// ChannelCreated implements tower.Observer.
func (m *Metrics) ChannelCreated(name string, level tower.LogLevel) {
	m.channelsCreated.Inc()
	m.subscribers.WithLabelValues(name).Set(0)
}

// Dispatched implements tower.Observer.
func (m *Metrics) Dispatched(name string, subscribers int, start time.Time, elapsed time.Duration) {
	m.dispatchesTotal.WithLabelValues(name).Inc()
	m.dispatchDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// SubscribersChanged implements tower.Observer.
func (m *Metrics) SubscribersChanged(name string, count int) {
	m.subscribers.WithLabelValues(name).Set(float64(count))
}

// SubscriberFaulted implements tower.Observer.
func (m *Metrics) SubscriberFaulted(fault *tower.SubscriberFault) {
	m.faultsTotal.WithLabelValues(fault.Channel).Inc()
}

var _ tower.Observer = (*Metrics)(nil)
