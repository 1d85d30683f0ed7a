package wserv

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wserv_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wserv_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, up to the handler's return",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wserv_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wserv_http_response_size_bytes",
			Help:    "Declared HTTP response body size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path", "status"},
	)
)

// PrometheusConfig holds configuration for Prometheus metrics middleware.
type PrometheusConfig struct {
	// SkipPaths lists paths to skip metrics collection (e.g., /metrics, /health)
	SkipPaths []string
}

// DefaultPrometheusConfig returns a PrometheusConfig with sensible defaults.
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		SkipPaths: []string{"/metrics"},
	}
}

// Prometheus returns a middleware that collects Prometheus metrics.
func Prometheus() Middleware {
	return PrometheusWithConfig(DefaultPrometheusConfig())
}

// PrometheusWithConfig returns a middleware that collects Prometheus metrics with custom configuration.
func PrometheusWithConfig(config PrometheusConfig) Middleware {
	skipMap := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if skipMap[req.URI] {
				return next.ServeHTTP1(ctx, req)
			}

			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			resp, err := next.ServeHTTP1(ctx, req)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(statusOf(resp, err))

			httpRequestsTotal.WithLabelValues(req.Method, req.URI, status).Inc()
			httpRequestDuration.WithLabelValues(req.Method, req.URI, status).Observe(duration)
			if resp != nil {
				httpResponseSize.WithLabelValues(req.Method, req.URI, status).Observe(float64(resp.BodyLen()))
			}

			return resp, err
		})
	}
}
