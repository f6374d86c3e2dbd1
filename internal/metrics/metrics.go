// Package metrics exposes Prometheus collectors fed by eventbus events.
// Subscribers observe HTTP requests, GraphQL operations and upstream
// item-store fetches; the handler serves the standard /metrics endpoint.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hnql/hnql/internal/eventbus"
	events "github.com/hnql/hnql/internal/events"
)

// Metrics holds the collectors and their eventbus subscriptions.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	gqlOperations *prometheus.CounterVec
	gqlErrors     prometheus.Counter
	gqlPatches    prometheus.Counter
	gqlDuration   *prometheus.HistogramVec

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	unsubscribe []func()
}

// New builds the collectors on a fresh registry and subscribes them to the
// global eventbus.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnql_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hnql_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		gqlOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnql_graphql_operations_total",
			Help: "GraphQL operations by type and delivery mode.",
		}, []string{"type", "delivery"}),
		gqlErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hnql_graphql_errors_total",
			Help: "GraphQL errors returned to clients.",
		}),
		gqlPatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hnql_graphql_patches_total",
			Help: "Incremental patches delivered for deferred fragments.",
		}),
		gqlDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hnql_graphql_operation_duration_seconds",
			Help:    "GraphQL operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnql_fetches_total",
			Help: "Upstream item-store fetches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hnql_fetch_duration_seconds",
			Help:    "Upstream item-store fetch latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.httpRequests, m.httpDuration,
		m.gqlOperations, m.gqlErrors, m.gqlPatches, m.gqlDuration,
		m.fetches, m.fetchDuration,
	)
	m.subscribe()
	return m
}

func (m *Metrics) subscribe() {
	m.unsubscribe = append(m.unsubscribe,
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			delivery := "single"
			if e.Incremental {
				delivery = "incremental"
			}
			m.gqlOperations.WithLabelValues(e.OperationType, delivery).Inc()
			m.gqlErrors.Add(float64(len(e.Errors)))
			m.gqlPatches.Add(float64(e.Patches))
			m.gqlDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.FetchFinish) {
			m.fetches.WithLabelValues(e.Kind, fetchOutcome(e)).Inc()
			m.fetchDuration.WithLabelValues(e.Kind).Observe(e.Duration.Seconds())
		}),
	)
}

func fetchOutcome(e events.FetchFinish) string {
	switch {
	case e.NotFound:
		return "not_found"
	case e.Err != nil:
		return "error"
	default:
		return "ok"
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Close detaches the eventbus subscriptions.
func (m *Metrics) Close() {
	for _, u := range m.unsubscribe {
		u()
	}
	m.unsubscribe = nil
}
