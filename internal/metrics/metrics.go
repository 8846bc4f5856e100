// Package metrics exposes process counters in Prometheus text format.
//
// Each Collector owns its registry, so independent servers (and tests) never
// share counters through the global default registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's metric families.
type Collector struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	webhookResults *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	queries        *prometheus.CounterVec
}

// New builds a Collector with its own registry. Go runtime and process
// collectors are registered alongside the service metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "status"},
		),
		webhookResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_requests_total",
				Help: "Total number of webhook requests by result",
			},
			[]string{"result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_latency_ms",
				Help:    "HTTP request latency in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
			[]string{"path"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_query_total",
				Help: "Total number of read API queries by endpoint",
			},
			[]string{"endpoint"},
		),
	}

	c.registry.MustRegister(
		c.httpRequests,
		c.webhookResults,
		c.latency,
		c.queries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Increment bumps webhook_requests_total for a terminal ingestion result.
func (c *Collector) Increment(result string) {
	c.webhookResults.WithLabelValues(result).Inc()
}

// ObserveHTTP records one finished HTTP request.
func (c *Collector) ObserveHTTP(path string, status int, latencyMS float64) {
	c.httpRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(path).Observe(latencyMS)
}

// Query bumps messages_query_total for a read endpoint.
func (c *Collector) Query(endpoint string) {
	c.queries.WithLabelValues(endpoint).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
