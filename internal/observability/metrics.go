package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects collector metrics.
type Metrics interface {
	RecordEvent(ctx context.Context, labels EventLabels)
	RecordLatency(ctx context.Context, latencyMs int64, labels EventLabels)
	RecordTokens(ctx context.Context, prompt, completion int, labels EventLabels)
	RecordRejected(ctx context.Context, reason string)
}

// EventLabels contains metric dimensions.
type EventLabels struct {
	TenantID string
	Feature  string
	Model    string
	Endpoint string
	Status   string
}

// PrometheusMetrics implements Metrics on a dedicated registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	eventsTotal   *prometheus.CounterVec
	eventLatency  *prometheus.HistogramVec
	tokensTotal   *prometheus.CounterVec
	rejectedTotal *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collector metrics on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokvera_events_total",
				Help: "Total number of analytics events accepted",
			},
			[]string{"tenant_id", "feature", "model", "endpoint", "status"},
		),
		eventLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokvera_provider_latency_seconds",
				Help:    "Provider call latency reported by tracked clients",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tenant_id", "model", "endpoint"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokvera_tokens_total",
				Help: "Total tokens reported by tracked clients",
			},
			[]string{"tenant_id", "feature", "model", "kind"},
		),
		rejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokvera_events_rejected_total",
				Help: "Total number of inbound events rejected",
			},
			[]string{"reason"},
		),
	}
}

// RecordEvent counts an accepted event
func (m *PrometheusMetrics) RecordEvent(_ context.Context, l EventLabels) {
	m.eventsTotal.WithLabelValues(l.TenantID, l.Feature, l.Model, l.Endpoint, l.Status).Inc()
}

// RecordLatency observes the reported provider latency
func (m *PrometheusMetrics) RecordLatency(_ context.Context, latencyMs int64, l EventLabels) {
	m.eventLatency.WithLabelValues(l.TenantID, l.Model, l.Endpoint).Observe(float64(latencyMs) / 1000)
}

// RecordTokens adds prompt and completion token counts
func (m *PrometheusMetrics) RecordTokens(_ context.Context, prompt, completion int, l EventLabels) {
	if prompt > 0 {
		m.tokensTotal.WithLabelValues(l.TenantID, l.Feature, l.Model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.tokensTotal.WithLabelValues(l.TenantID, l.Feature, l.Model, "completion").Add(float64(completion))
	}
}

// RecordRejected counts an event refused before storage
func (m *PrometheusMetrics) RecordRejected(_ context.Context, reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// Registry exposes the underlying registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) RecordEvent(context.Context, EventLabels) {}
func (NopMetrics) RecordLatency(context.Context, int64, EventLabels) {}
func (NopMetrics) RecordTokens(context.Context, int, int, EventLabels) {}
func (NopMetrics) RecordRejected(context.Context, string) {}
