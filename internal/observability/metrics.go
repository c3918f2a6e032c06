// Package observability collects Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus registry and HTTP metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	membershipChecks *prometheus.CounterVec
	clockEvents      *prometheus.CounterVec
	overdueShifts    prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rollcall_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	membership := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_membership_checks_total",
		Help: "Perimeter membership evaluations by outcome.",
	}, []string{"outcome"})
	clockEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_clock_events_total",
		Help: "Clock-in/out attempts by kind and result.",
	}, []string{"kind", "result"})
	overdue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_overdue_open_shifts_total",
		Help: "Open shifts flagged by the overdue scan.",
	})
	registry.MustRegister(requests, duration, membership, clockEvents, overdue)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		membershipChecks: membership,
		clockEvents:      clockEvents,
		overdueShifts:    overdue,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
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

// ObserveMembershipCheck counts a membership evaluation outcome
// ("inside", "outside" or "unconfigured").
func (m *Metrics) ObserveMembershipCheck(outcome string) {
	if m == nil {
		return
	}
	m.membershipChecks.WithLabelValues(outcome).Inc()
}

// ObserveClockEvent counts a clock-in/out attempt result.
func (m *Metrics) ObserveClockEvent(kind, result string) {
	if m == nil {
		return
	}
	m.clockEvents.WithLabelValues(kind, result).Inc()
}

// ObserveOverdueShift counts a shift flagged by the overdue scan.
func (m *Metrics) ObserveOverdueShift() {
	if m == nil {
		return
	}
	m.overdueShifts.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
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
