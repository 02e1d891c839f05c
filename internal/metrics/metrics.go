// Package metrics holds the gateway's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nftgateway"

// Metrics is a prometheus.Collector for upstream, cache and image proxy activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	projections      *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	imageOutcomes    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New returns collectors registered on a dedicated registry together with
// the Go and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Outbound requests by provider and outcome.",
			}, []string{"provider", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Latency of outbound requests.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			}, []string{"provider"},
		),
		projections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_projection_total",
				Help:      "Which response-shape projection matched, per provider.",
			}, []string{"provider", "projection"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by kind and result.",
			}, []string{"kind", "result"},
		),
		imageOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_proxy_responses_total",
				Help:      "Image proxy responses by outcome.",
			}, []string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Inbound requests by route template, method and status class.",
			}, []string{"route", "method", "status"},
		),
	}
	if err := m.registry.Register(prometheus.NewGoCollector()); err != nil {
		return nil, errors.Trace(err)
	}
	if err := m.registry.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{})); err != nil {
		return nil, errors.Trace(err)
	}
	if err := m.registry.Register(m); err != nil {
		return nil, errors.Annotate(err, "registering gateway metrics")
	}
	return m, nil
}

// Describe is part of the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.upstreamRequests.Describe(ch)
	m.upstreamDuration.Describe(ch)
	m.projections.Describe(ch)
	m.cacheLookups.Describe(ch)
	m.imageOutcomes.Describe(ch)
	m.httpRequests.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.upstreamRequests.Collect(ch)
	m.upstreamDuration.Collect(ch)
	m.projections.Collect(ch)
	m.cacheLookups.Collect(ch)
	m.imageOutcomes.Collect(ch)
	m.httpRequests.Collect(ch)
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records one outbound call.
func (m *Metrics) ObserveUpstream(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(provider, outcome).Inc()
	m.upstreamDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveProjection records which response shape matched.
func (m *Metrics) ObserveProjection(provider, projection string) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(provider, projection).Inc()
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveImage records an image proxy outcome (upstream or placeholder).
func (m *Metrics) ObserveImage(outcome string) {
	if m == nil {
		return
	}
	m.imageOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one inbound request. status is folded to its class (2xx, 4xx, ...).
func (m *Metrics) ObserveRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status/100)+"xx").Inc()
}
