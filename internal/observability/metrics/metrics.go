// Package metrics owns the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/target/municipal-portal/internal/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics groups the collectors registered by New.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	gateDecisions *prometheus.CounterVec
	backendCalls  *prometheus.HistogramVec
	polls         *prometheus.CounterVec
}

// New creates a registry holding the portal collectors plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests served, by route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_gate_decisions_total",
			Help: "Route gate verdicts by kind and reason.",
		}, []string{"kind", "reason"}),
		backendCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_backend_call_duration_seconds",
			Help:    "Backend API call latency by operation and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_polls_total",
			Help: "Background poll runs by subscriber and result.",
		}, []string{"name", "result"}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.gateDecisions, m.backendCalls, m.polls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request. route should be the matched mux
// pattern, never the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveGate records a gate verdict.
func (m *Metrics) ObserveGate(kind, reason string) {
	m.gateDecisions.WithLabelValues(kind, reason).Inc()
}

// ObserveBackend records a backend call. Its signature matches the backend
// client's Observer hook.
func (m *Metrics) ObserveBackend(op, outcome string, elapsed time.Duration) {
	m.backendCalls.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}

// ObservePoll records a poll run. Its signature matches the poller's Observer hook.
func (m *Metrics) ObservePoll(name string, err error, _ time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
		if code := apperrors.GetCode(err); code != "" {
			result = string(code)
		}
	}
	m.polls.WithLabelValues(name, result).Inc()
}
