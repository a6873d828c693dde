package bridge

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bridge
type Metrics struct {
	// Channel call metrics
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics instance on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flavor_bridge_calls_total",
				Help: "Total number of channel calls by channel, method and reply status",
			},
			[]string{"channel", "method", "status"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flavor_bridge_call_duration_seconds",
				Help:    "Channel call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel", "method"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flavor_bridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flavor_bridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.callsTotal,
		m.callDuration,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordCall records a dispatched channel call
func (m *Metrics) RecordCall(channel, method, status string, duration time.Duration) {
	m.callsTotal.WithLabelValues(channel, method, status).Inc()
	m.callDuration.WithLabelValues(channel, method).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware creates HTTP middleware that records request metrics
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, endpointName(r), strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// endpointName uses the chi route pattern so channel names do not become
// label values.
func endpointName(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
