package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for inbound requests and outbound API calls.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	apiCallsTotal   *prometheus.CounterVec
	apiCallDuration *prometheus.HistogramVec
	activeClients   prometheus.GaugeFunc
}

// NewMetrics initialises the registry. clients, when non-nil, reports the
// number of live session clients.
func NewMetrics(clients func() int) *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slooze_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slooze_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	apiCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slooze_api_calls_total",
		Help: "Calls to the Slooze REST API by endpoint and status code.",
	}, []string{"endpoint", "code"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slooze_api_call_duration_seconds",
		Help:    "Slooze REST API latency by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	registry.MustRegister(requests, duration, apiCalls, apiDuration)

	m := &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		apiCallsTotal:   apiCalls,
		apiCallDuration: apiDuration,
	}
	if clients != nil {
		m.activeClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "slooze_session_clients",
			Help: "Session clients held in memory.",
		}, func() float64 { return float64(clients()) })
		registry.MustRegister(m.activeClients)
	}
	return m
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAPICall records one outbound API call. A zero status means the
// request failed before a response arrived.
func (m *Metrics) ObserveAPICall(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.apiCallsTotal.WithLabelValues(endpoint, code).Inc()
	m.apiCallDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
