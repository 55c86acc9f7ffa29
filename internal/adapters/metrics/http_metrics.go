package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetricsCollector handles request metrics of the daemon's HTTP surface
type HTTPMetricsCollector struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
}

// NewHTTPMetricsCollector creates a new HTTP metrics collector
func NewHTTPMetricsCollector() *HTTPMetricsCollector {
	return &HTTPMetricsCollector{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration distribution",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"route", "method"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "method", "code"},
		),
	}
}

// Register registers all HTTP metrics with the Prometheus registry
func (c *HTTPMetricsCollector) Register() error {
	return register(c.requestDuration, c.requestsTotal)
}

// RecordRequest records one served request
func (c *HTTPMetricsCollector) RecordRequest(route, method string, code int, duration float64) {
	c.requestDuration.WithLabelValues(route, method).Observe(duration)
	c.requestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}

// Middleware records every request under its chi route pattern.
// A nil collector passes requests through untouched.
func Middleware(collector *HTTPMetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			collector.RecordRequest(route, r.Method, code, time.Since(start).Seconds())
		})
	}
}
