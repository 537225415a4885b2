package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds Prometheus export configuration.
type Config struct {
	Namespace string `json:"namespace"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig returns the default Prometheus configuration.
func DefaultConfig() *Config {
	return &Config{
		Namespace: "socialscan",
		Enabled:   true,
	}
}

// Collectors holds the engine's Prometheus metrics.
type Collectors struct {
	registry *prometheus.Registry

	ScansTotal      *prometheus.CounterVec
	ScanDuration    *prometheus.HistogramVec
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	CacheHitRatio   prometheus.Gauge
	OperationsTotal prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec
	CircuitState    *prometheus.GaugeVec
	ActiveScans     prometheus.Gauge
	RetainedScans   prometheus.Gauge
}

// NewCollectors creates and registers all Prometheus metrics on a private
// registry, so tests can construct collectors freely.
func NewCollectors(config *Config) *Collectors {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return nil
	}

	registry := prometheus.NewRegistry()
	c := &Collectors{
		registry: registry,
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "scans_total",
				Help:      "Total number of scans by terminal status",
			},
			[]string{"status"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "scan_duration_seconds",
				Help:      "Scan duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "fetches_total",
				Help:      "Total number of platform fetches",
			},
			[]string{"platform", "kind", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Platform fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"platform", "kind"},
		),
		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "cache_hit_ratio",
				Help:      "Cache hit ratio over the trailing report window",
			},
		),
		OperationsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "operations_window_total",
				Help:      "Operations observed over the trailing report window",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by component",
			},
			[]string{"component", "error_type"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state per key (0=closed, 1=open, 2=half-open)",
			},
			[]string{"key"},
		),
		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "active_scans",
				Help:      "Number of scans currently in flight",
			},
		),
		RetainedScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "retained_scans",
				Help:      "Number of scan results currently retained in memory",
			},
		),
	}

	registry.MustRegister(
		c.ScansTotal,
		c.ScanDuration,
		c.FetchesTotal,
		c.FetchDuration,
		c.CacheHitRatio,
		c.OperationsTotal,
		c.ErrorsTotal,
		c.CircuitState,
		c.ActiveScans,
		c.RetainedScans,
	)
	return c
}

// ObserveReport pushes an aggregation report into the window gauges.
func (c *Collectors) ObserveReport(report Report) {
	c.CacheHitRatio.Set(report.CacheHitRate)
	c.OperationsTotal.Set(float64(report.TotalOperations))
}

// Handler returns an HTTP handler serving the private registry.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
