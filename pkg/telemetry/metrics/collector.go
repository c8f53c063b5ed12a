package metrics

import (
	"strconv"
	"time"

	"skyscraper-hq/skyscraper/pkg/config"
	"skyscraper-hq/skyscraper/pkg/orchestrator"
	"skyscraper-hq/skyscraper/pkg/platform"
	"skyscraper-hq/skyscraper/pkg/retention"

	"github.com/prometheus/client_golang/prometheus"
)

// Pass results used as the "result" label on pass metrics.
const (
	PassResultOK          = "ok"
	PassResultRateLimited = "rate_limited"
	PassResultError       = "error"
)

// Collector owns the Prometheus registry for a process and receives
// callbacks from the orchestrator, the retention engine and the platform
// transports.
//
// Metrics:
//   - records_total{platform,collection,decision}
//   - passes_total{platform,collection,result}
//   - pass_duration_seconds{platform,collection}
//   - api_requests_total{platform,method,status}
//   - api_request_duration_seconds{platform,method}
//   - runs_total{result}
//   - last_run_timestamp_seconds, last_run_success
//   - last_run_deleted{platform}
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	records      *prometheus.CounterVec
	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	runs             *prometheus.CounterVec
	lastRunTimestamp prometheus.Gauge
	lastRunSuccess   prometheus.Gauge
	lastRunDeleted   *prometheus.GaugeVec
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one; the global default registry is never
// used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "skyscraper"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	}
	if len(cfg.PassDurationBuckets) == 0 {
		cfg.PassDurationBuckets = []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600}
	}

	ns := cfg.Namespace
	c := &Collector{
		config:   cfg,
		registry: registry,
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "records_total",
			Help:      "Records evaluated, by decision",
		}, []string{"platform", "collection", "decision"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "passes_total",
			Help:      "Collection passes, by result",
		}, []string{"platform", "collection", "result"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one collection pass",
			Buckets:   cfg.PassDurationBuckets,
		}, []string{"platform", "collection"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "api_requests_total",
			Help:      "Platform API round trips, by HTTP status",
		}, []string{"platform", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "api_request_duration_seconds",
			Help:      "Platform API round-trip latency",
			Buckets:   cfg.RequestDurationBuckets,
		}, []string{"platform", "method"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "runs_total",
			Help:      "Cleanup runs, by result",
		}, []string{"result"}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last cleanup run finished",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "last_run_success",
			Help:      "1 if no platform failed in the last run, else 0",
		}),
		lastRunDeleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "last_run_deleted",
			Help:      "Records deleted (or that would be deleted) per platform in the last run",
		}, []string{"platform"}),
	}

	registry.MustRegister(
		c.records,
		c.passes,
		c.passDuration,
		c.requests,
		c.requestDuration,
		c.runs,
		c.lastRunTimestamp,
		c.lastRunSuccess,
		c.lastRunDeleted,
	)
	return c
}

// ObserveRecord counts one record decision.
func (c *Collector) ObserveRecord(platformName string, kind platform.Kind, decision retention.Decision) {
	if !c.config.Enabled {
		return
	}
	c.records.WithLabelValues(platformName, string(kind), string(decision)).Inc()
}

// ObservePass records the result and duration of a collection pass.
func (c *Collector) ObservePass(platformName string, kind platform.Kind, outcome retention.Outcome, err error, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	result := PassResultOK
	switch {
	case err != nil:
		result = PassResultError
	case outcome.RateLimited:
		result = PassResultRateLimited
	}
	c.passes.WithLabelValues(platformName, string(kind), result).Inc()
	c.passDuration.WithLabelValues(platformName, string(kind)).Observe(duration.Seconds())
}

// ObserveRun records run-level gauges once a run has finished.
func (c *Collector) ObserveRun(report *orchestrator.Report) {
	if !c.config.Enabled || report == nil {
		return
	}
	success := 1.0
	result := "success"
	if report.Failed() {
		success = 0
		result = "failed"
	}
	c.runs.WithLabelValues(result).Inc()
	c.lastRunSuccess.Set(success)
	c.lastRunTimestamp.Set(float64(report.FinishedAt.Unix()))

	c.lastRunDeleted.Reset()
	for _, p := range report.Platforms {
		if p.Status == orchestrator.StatusSkipped {
			continue
		}
		c.lastRunDeleted.WithLabelValues(p.Name).Set(float64(p.Totals().Deleted))
	}
}

// ObserveRequest records one platform API round trip. A status of 0 means
// the request never produced a response.
func (c *Collector) ObserveRequest(platformName, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.requests.WithLabelValues(platformName, method, label).Inc()
	c.requestDuration.WithLabelValues(platformName, method).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
