package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	allocations     *prometheus.CounterVec
	sweepRuns       prometheus.Counter
	sweepReleased   prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_requests_total",
		Help: "Allocation searches by outcome",
	}, []string{"outcome"})

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_runs_total",
		Help: "Number of auto-release sweeps executed",
	})

	sweepReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_released_total",
		Help: "Bookings reclaimed by the auto-release sweeper",
	})

	registry.MustRegister(requestDuration, requestTotal, allocations, sweepRuns, sweepReleased)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		allocations:     allocations,
		sweepRuns:       sweepRuns,
		sweepReleased:   sweepReleased,
	}
}

// Handler serves the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObserveAllocation records one allocation search outcome.
func (m *MetricsService) ObserveAllocation(outcome string) {
	m.allocations.WithLabelValues(outcome).Inc()
}

// ObserveSweep records one sweep and how many bookings it released.
func (m *MetricsService) ObserveSweep(released int) {
	m.sweepRuns.Inc()
	m.sweepReleased.Add(float64(released))
}
