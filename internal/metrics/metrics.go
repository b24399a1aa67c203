// Package metrics implements the observability hooks with Prometheus.
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/observability"
)

// Metrics holds every chartforge collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration    *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	generativeCalls  *prometheus.CounterVec
	generativeTime   prometheus.Histogram
	fallbacksTotal   *prometheus.CounterVec
	cacheEvents      *prometheus.CounterVec
	cacheBytes       *prometheus.CounterVec
	batchJobs        *prometheus.CounterVec
	batchJobDuration prometheus.Histogram
	rasterTasks      *prometheus.CounterVec
	rasterRetries    prometheus.Counter
	rasterDuration   prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "chartforge_stage_duration_seconds",
			Help: "Duration of pipeline stages in seconds",
		}, []string{"stage", "outcome"}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartforge_requests_total",
			Help: "Chart requests by family, instruction source and error code",
		}, []string{"family", "source", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "chartforge_request_duration_seconds",
			Help: "End-to-end duration of chart requests in seconds",
		}, []string{"source"}),
		generativeCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartforge_generative_calls_total",
			Help: "Calls to the generative service",
		}, []string{"model", "outcome"}),
		generativeTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartforge_generative_call_duration_seconds",
			Help:    "Duration of generative service calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		fallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartforge_fallbacks_total",
			Help: "Template fallbacks by family",
		}, []string{"family"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartforge_cache_events_total",
			Help: "Cache hits, misses and sets by key type",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartforge_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"key_type"}),
		batchJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartforge_batch_jobs_total",
			Help: "Batch jobs by family, theme and status",
		}, []string{"family", "theme", "status"}),
		batchJobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name: "chartforge_batch_job_duration_seconds",
			Help: "Duration of batch jobs in seconds",
		}),
		rasterTasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartforge_raster_tasks_total",
			Help: "Raster conversion tasks by terminal state",
		}, []string{"state"}),
		rasterRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "chartforge_raster_retries_total",
			Help: "Retried raster conversion attempts",
		}),
		rasterDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name: "chartforge_raster_task_duration_seconds",
			Help: "Duration of raster conversion tasks in seconds",
		}),
	}
}

// Install registers m as every observability hook.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetGenerativeHooks(m)
	observability.SetCacheHooks(m)
	observability.SetBatchHooks(m)
	observability.SetRasterHooks(m)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteCounters prints every non-zero counter as "name{labels} value", one
// per line, sorted.
func (m *Metrics) WriteCounters(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			c := metric.GetCounter()
			if c == nil || c.GetValue() == 0 {
				continue
			}
			var labels []string
			for _, l := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), c.GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func code(err error) string {
	if err == nil {
		return ""
	}
	if c := errors.GetCode(err); c != "" {
		return string(c)
	}
	return string(errors.ErrCodeInternal)
}

func (m *Metrics) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage, outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) OnRequestComplete(_ context.Context, family, source string, d time.Duration, err error) {
	m.requestsTotal.WithLabelValues(family, source, code(err)).Inc()
	m.requestDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) OnCall(_ context.Context, model string, d time.Duration, err error) {
	m.generativeCalls.WithLabelValues(model, outcome(err)).Inc()
	m.generativeTime.Observe(d.Seconds())
}

func (m *Metrics) OnFallback(_ context.Context, family, _ string) {
	m.fallbacksTotal.WithLabelValues(family).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnJobComplete(_ context.Context, family, theme, status string, d time.Duration) {
	m.batchJobs.WithLabelValues(family, theme, status).Inc()
	m.batchJobDuration.Observe(d.Seconds())
}

func (m *Metrics) OnTaskComplete(_ context.Context, state string, _ int, d time.Duration) {
	m.rasterTasks.WithLabelValues(state).Inc()
	m.rasterDuration.Observe(d.Seconds())
}

func (m *Metrics) OnRetry(context.Context, int, error) {
	m.rasterRetries.Inc()
}

var (
	_ observability.PipelineHooks   = (*Metrics)(nil)
	_ observability.GenerativeHooks = (*Metrics)(nil)
	_ observability.CacheHooks      = (*Metrics)(nil)
	_ observability.BatchHooks      = (*Metrics)(nil)
	_ observability.RasterHooks     = (*Metrics)(nil)
)
