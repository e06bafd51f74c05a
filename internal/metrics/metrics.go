// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	evaluations *prometheus.CounterVec
	mandatory   *prometheus.HistogramVec
	searches    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onboarding",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "onboarding",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onboarding",
			Name:      "completion_evaluations_total",
			Help:      "Completion evaluations by catalogue version and kind.",
		}, []string{"version", "kind"}),
		mandatory: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "onboarding",
			Name:      "mandatory_completion_percent",
			Help:      "Distribution of mandatory completion percentages.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"version"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onboarding",
			Name:      "field_searches_total",
			Help:      "Field searches by serving backend.",
		}, []string{"backend"}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.evaluations, m.mandatory, m.searches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished request. route should be the
// route pattern, not the raw path, to bound label cardinality.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveEvaluation counts one completion computation. kind is e.g.
// "report", "mandatory", "domains" or "onboarding".
func (m *Metrics) ObserveEvaluation(version, kind string, mandatoryPct int) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(version, kind).Inc()
	m.mandatory.WithLabelValues(version).Observe(float64(mandatoryPct))
}

func (m *Metrics) ObserveSearch(backend string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(backend).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
