package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"method", "route", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	apiInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_inflight_requests",
			Help: "Number of API requests currently being served",
		},
	)

	apiResponseBytes = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "api_response_size_bytes",
			Help: "API response body sizes in bytes",
		},
		[]string{"route"},
	)
)

// Metrics records request counts, latency, in-flight gauge and response size
// for every handled request. The matched route template is used as the route
// label so path parameters never explode the cardinality.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		apiInFlight.Inc()
		defer apiInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		method := c.Method()
		status := strconv.Itoa(c.Response().StatusCode())

		apiRequestsTotal.WithLabelValues(method, route, status).Inc()
		apiRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		apiResponseBytes.WithLabelValues(route).Observe(float64(len(c.Response().Body())))

		return err
	}
}
