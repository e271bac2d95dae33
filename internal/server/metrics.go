package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/ontograph/pkg/observability"
)

const namespace = "ontograph"

// Metrics exports session, pipeline and cache events to Prometheus. It
// implements the observability hook interfaces.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions prometheus.Gauge
	ModelsBuilt    prometheus.Counter
	ModelNodes     prometheus.Histogram
	SimSteps       prometheus.Counter
	SettleDuration prometheus.Histogram
	FrameDuration  prometheus.Histogram
	Exports        *prometheus.CounterVec

	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec

	CacheRequests *prometheus.CounterVec
	CacheBytes    *prometheus.CounterVec
}

var (
	_ observability.SessionHooks  = (*Metrics)(nil)
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
)

// NewMetrics creates the collectors and registers them, along with the Go
// runtime and process collectors, on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of live viewer sessions",
		}),
		ModelsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "models_built_total",
			Help:      "Graph models built from snapshots",
		}),
		ModelNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "model_nodes",
			Help:      "Node count of built models",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		SimSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "simulation_steps_total",
			Help:      "Force simulation steps applied",
		}),
		SettleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "settle_seconds",
			Help:      "Wall time from model build to exhausted step budget",
			Buckets:   prometheus.DefBuckets,
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "frame_seconds",
			Help:      "Time spent drawing one frame",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "exports_total",
			Help:      "Image exports by format and status",
		}, []string{"format", "status"}),

		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_seconds",
			Help:      "Pipeline stage duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Failed pipeline stages",
		}, []string{"stage"}),

		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by key type and result",
		}, []string{"key_type", "result"}),
		CacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache",
		}, []string{"key_type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActiveSessions,
		m.ModelsBuilt,
		m.ModelNodes,
		m.SimSteps,
		m.SettleDuration,
		m.FrameDuration,
		m.Exports,
		m.StageDuration,
		m.StageErrors,
		m.CacheRequests,
		m.CacheBytes,
	)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetSessionHooks(m)
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
}

// OnBuild implements observability.SessionHooks.
func (m *Metrics) OnBuild(_ context.Context, nodes, _ int) {
	m.ModelsBuilt.Inc()
	m.ModelNodes.Observe(float64(nodes))
}

// OnStep implements observability.SessionHooks.
func (m *Metrics) OnStep(context.Context, int) { m.SimSteps.Inc() }

// OnSettled implements observability.SessionHooks.
func (m *Metrics) OnSettled(_ context.Context, _ int, elapsed time.Duration) {
	m.SettleDuration.Observe(elapsed.Seconds())
}

// OnRender implements observability.SessionHooks.
func (m *Metrics) OnRender(_ context.Context, d time.Duration) {
	m.FrameDuration.Observe(d.Seconds())
}

// OnExport implements observability.SessionHooks.
func (m *Metrics) OnExport(_ context.Context, format string, _ int, err error) {
	m.Exports.WithLabelValues(format, status(err)).Inc()
}

// OnLoadComplete implements observability.PipelineHooks.
func (m *Metrics) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	m.stage("load", d, err)
}

// OnLayoutStart implements observability.PipelineHooks.
func (m *Metrics) OnLayoutStart(context.Context, int) {}

// OnLayoutComplete implements observability.PipelineHooks.
func (m *Metrics) OnLayoutComplete(_ context.Context, _ int, d time.Duration, err error) {
	m.stage("layout", d, err)
}

// OnRenderStart implements observability.PipelineHooks.
func (m *Metrics) OnRenderStart(context.Context, []string) {}

// OnRenderComplete implements observability.PipelineHooks.
func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	m.stage("render", d, err)
}

func (m *Metrics) stage(name string, d time.Duration, err error) {
	m.StageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.StageErrors.WithLabelValues(name).Inc()
	}
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
