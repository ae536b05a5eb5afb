// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for
// the saga-gateway processes.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "saga-gateway"

// Metrics holds all saga-gateway Prometheus metrics
type Metrics struct {
	DownstreamRequests *prometheus.CounterVec
	DownstreamDuration *prometheus.HistogramVec
	PipelineRuns       *prometheus.CounterVec
	StorageWrites      *prometheus.CounterVec
	SchedulerTicks     *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	HTTPInFlight       prometheus.Gauge
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics

	gatherer prometheus.Gatherer
}

// NewProvider registers the metrics on reg. A nil reg uses the Prometheus
// default registry, which may only happen once per process.
func NewProvider(reg *prometheus.Registry) *Provider {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	return &Provider{
		Tracer:   otel.Tracer(tracerName),
		Metrics:  initMetrics(promauto.With(registerer)),
		gatherer: gatherer,
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func initMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		DownstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saga_gateway_downstream_requests_total",
			Help: "Downstream calls by dependency and outcome (ok, rejected, unreachable)",
		}, []string{"dependency", "outcome"}),

		DownstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saga_gateway_downstream_duration_seconds",
			Help:    "Downstream call latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"dependency"}),

		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saga_gateway_pipeline_runs_total",
			Help: "Pipeline runs by result (done, failed) and terminal step",
		}, []string{"result", "step"}),

		StorageWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saga_gateway_storage_writes_total",
			Help: "Storage writes by backend and result",
		}, []string{"backend", "result"}),

		SchedulerTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saga_gateway_scheduler_ticks_total",
			Help: "Scheduler ticks by result",
		}, []string{"result"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saga_gateway_http_requests_total",
			Help: "Inbound HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saga_gateway_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "saga_gateway_http_requests_in_flight",
			Help: "Inbound HTTP requests currently being served",
		}),
	}
}

// RecordDownstream records one downstream call.
func (p *Provider) RecordDownstream(dependency, outcome string, duration time.Duration) {
	p.Metrics.DownstreamRequests.WithLabelValues(dependency, outcome).Inc()
	p.Metrics.DownstreamDuration.WithLabelValues(dependency).Observe(duration.Seconds())
}

// RecordRun records a finished pipeline run.
func (p *Provider) RecordRun(result, step string) {
	p.Metrics.PipelineRuns.WithLabelValues(result, step).Inc()
}

// RecordStorageWrite records a store write attempt.
func (p *Provider) RecordStorageWrite(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.Metrics.StorageWrites.WithLabelValues(backend, result).Inc()
}

// RecordSchedulerTick records one scheduler tick.
func (p *Provider) RecordSchedulerTick(result string) {
	p.Metrics.SchedulerTicks.WithLabelValues(result).Inc()
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
