// Package observability wires the gateway's metrics and tracing: a
// Prometheus collector with its own registry, an OTLP tracer provider
// and the HTTP middleware feeding both.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every Prometheus metric of the gateway. It owns its
// registry so tests can build as many collectors as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	BackendOps      *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	ConfigRebuilds *prometheus.CounterVec
	EnumRefreshes  *prometheus.CounterVec
}

// NewCollector creates and registers the gateway metrics under
// namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		BackendOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_operations_total",
				Help:      "Total number of backend database operations",
			},
			[]string{"operation", "collection", "status"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_operation_duration_seconds",
				Help:      "Backend database operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "collection"},
		),
		ConfigRebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_rebuilds_total",
				Help:      "Total number of registry rebuilds from configuration",
			},
			[]string{"registry", "status"},
		),
		EnumRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enum_refreshes_total",
				Help:      "Total number of enum service refreshes",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.BackendOps,
		c.BackendDuration,
		c.ConfigRebuilds,
		c.EnumRefreshes,
	)
	return c
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one handled HTTP request.
func (c *Collector) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveBackend records one backend operation.
func (c *Collector) ObserveBackend(operation, collection string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.BackendOps.WithLabelValues(operation, collection, status).Inc()
	c.BackendDuration.WithLabelValues(operation, collection).Observe(elapsed.Seconds())
}

// ObserveRebuild records one registry rebuild.
func (c *Collector) ObserveRebuild(registryName string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ConfigRebuilds.WithLabelValues(registryName, status).Inc()
}

// ObserveEnumRefresh records one enum refresh attempt.
func (c *Collector) ObserveEnumRefresh(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.EnumRefreshes.WithLabelValues(status).Inc()
}
