// Package metrics holds the prometheus collectors for the lifecycle
// service, the item cache, the API server and the change publisher.
//
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "triggerkit"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeBusy     = "busy"
	OutcomeFailed   = "failed"
	OutcomeNotFound = "not_found"
)

// Metrics bundles every collector behind its own registry.
type Metrics struct {
	registry *prometheus.Registry

	LifecycleOps      *prometheus.CounterVec
	LifecycleDuration *prometheus.HistogramVec
	ActiveTriggers    prometheus.Gauge
	ItemCacheLookups  *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PublishTotal *prometheus.CounterVec
}

// New creates the collectors on a fresh registry. Process and Go runtime
// collectors are registered when withRuntime is true.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LifecycleOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_operations_total",
				Help:      "Lifecycle operations by kind and outcome",
			},
			[]string{"operation", "outcome"},
		),
		LifecycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lifecycle_store_duration_seconds",
				Help:      "Latency of store round trips issued by the lifecycle service",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		ActiveTriggers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_triggers",
				Help:      "Triggers in the session's active set",
			},
		),
		ItemCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "item_cache_lookups_total",
				Help:      "Item list lookups by cache result",
			},
			[]string{"result"}, // hit, miss
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		PublishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "change_publish_total",
				Help:      "Trigger change messages handed to the broker",
			},
			[]string{"status"}, // success, failed, dropped
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLifecycle records one lifecycle operation.
func (m *Metrics) ObserveLifecycle(operation, outcome string) {
	if m == nil {
		return
	}
	m.LifecycleOps.WithLabelValues(operation, outcome).Inc()
}

// ObserveStoreCall records the latency of a store round trip.
func (m *Metrics) ObserveStoreCall(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.LifecycleDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetActiveTriggers sets the active set size.
func (m *Metrics) SetActiveTriggers(n int) {
	if m == nil {
		return
	}
	m.ActiveTriggers.Set(float64(n))
}

// ObserveItemCache records a cache hit or miss.
func (m *Metrics) ObserveItemCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ItemCacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObservePublish records the fate of a change message.
func (m *Metrics) ObservePublish(status string) {
	if m == nil {
		return
	}
	m.PublishTotal.WithLabelValues(status).Inc()
}
