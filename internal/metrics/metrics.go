// ABOUTME: Prometheus instrumentation for the gateway on a private registry
// ABOUTME: All recording methods are nil-safe so components work without metrics enabled

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pipedrive_gateway"

// Metrics owns the gateway's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	authAttempts      *prometheus.CounterVec
	rateLimited       prometheus.Counter
	rpcRequests       *prometheus.CounterVec
	toolCalls         *prometheus.CounterVec
	upstreamDuration  *prometheus.HistogramVec
	oversizedResponse *prometheus.CounterVec
}

// New creates a Metrics with Go runtime and process collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Bearer authentication attempts by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-principal rate limiter.",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method and result code (0 for success).",
		}, []string{"method", "code"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of Pipedrive API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "status"}),
		oversizedResponse: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oversized_responses_total",
			Help:      "Tool results whose estimated token count exceeded the budget.",
		}, []string{"tool"}),
	}

	registry.MustRegister(
		m.authAttempts,
		m.rateLimited,
		m.rpcRequests,
		m.toolCalls,
		m.upstreamDuration,
		m.oversizedResponse,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterGauge exposes a value computed at scrape time.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// AuthAttempt counts one authentication outcome.
func (m *Metrics) AuthAttempt(outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(outcome).Inc()
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// RPCRequest counts one dispatched JSON-RPC request.
func (m *Metrics) RPCRequest(method string, code int) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ToolCall counts one tool invocation.
func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// UpstreamRequest observes one Pipedrive API round trip.
func (m *Metrics) UpstreamRequest(resource string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(resource, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// OversizedResponse counts a tool result over the token budget.
func (m *Metrics) OversizedResponse(tool string) {
	if m == nil {
		return
	}
	m.oversizedResponse.WithLabelValues(tool).Inc()
}
