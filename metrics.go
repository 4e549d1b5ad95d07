package weft

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weft-dev/weft/pkg/reconcile"
)

// MetricsConfig configures the Prometheus metrics set.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "weft").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for reconcile duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to register on.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the metrics set.
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

// WithBuckets sets the duration histogram buckets.
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
		Namespace: "weft",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is the Prometheus instrumentation for a Reconciler.
//
// Metrics collected:
//   - weft_reconciles_total: counter of passes by context and status
//   - weft_reconcile_duration_seconds: histogram of pass duration by context
//   - weft_patches_total: counter of emitted patches by action
//   - weft_duplicate_keys_total: counter of duplicate-key diagnostics
//   - weft_context_records: gauge of live records per context
//
// Register one set per registry; a second NewMetrics on the same
// registry panics in promauto, exactly like registering any collector
// twice.
type Metrics struct {
	reconciles    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	patches       *prometheus.CounterVec
	duplicateKeys prometheus.Counter
	records       *prometheus.GaugeVec
}

// NewMetrics creates and registers the metrics set.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	r := weft.New(weft.WithMetrics(weft.NewMetrics(weft.WithRegistry(reg))))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		reconciles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconciles_total",
			Help:        "Total number of reconciliation passes",
			ConstLabels: config.ConstLabels,
		}, []string{"context", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconcile_duration_seconds",
			Help:        "Reconciliation pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"context"}),

		patches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_total",
			Help:        "Total number of emitted patches by action",
			ConstLabels: config.ConstLabels,
		}, []string{"action"}),

		duplicateKeys: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "duplicate_keys_total",
			Help:        "Total number of duplicate-key diagnostics",
			ConstLabels: config.ConstLabels,
		}),

		records: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "context_records",
			Help:        "Live rendered-node records per context",
			ConstLabels: config.ConstLabels,
		}, []string{"context"}),
	}
}

// observePass records one completed pass. Nil receivers are legal so
// the facade never branches on instrumentation being configured.
func (m *Metrics) observePass(contextKey string, res *reconcile.Result, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reconciles.WithLabelValues(contextKey, "error").Inc()
		return
	}
	m.reconciles.WithLabelValues(contextKey, "success").Inc()
	m.duration.WithLabelValues(contextKey).Observe(elapsed.Seconds())
	m.records.WithLabelValues(contextKey).Set(float64(res.Stats.Records))

	s := res.Stats
	m.addPatches(reconcile.ActionInsert, s.Inserts)
	m.addPatches(reconcile.ActionRemove, s.Removes)
	m.addPatches(reconcile.ActionUpdate, s.Updates)
	m.addPatches(reconcile.ActionMove, s.Moves)
	m.addPatches(reconcile.ActionReplace, s.Replaces)

	for _, diag := range res.Diagnostics {
		if diag.Code == reconcile.DiagDuplicateKey {
			m.duplicateKeys.Inc()
		}
	}
}

func (m *Metrics) addPatches(a reconcile.Action, n int) {
	if n > 0 {
		m.patches.WithLabelValues(a.String()).Add(float64(n))
	}
}

// DropContext removes the record gauge for a cleared context so the
// metric does not report a phantom surface forever.
func (m *Metrics) DropContext(contextKey string) {
	if m != nil {
		m.records.DeleteLabelValues(contextKey)
	}
}
