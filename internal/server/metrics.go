// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cabinet_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	httpRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_http_requests_in_flight",
			Help: "Current in-flight requests",
		},
	)

	rateLimiterBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_rate_limiter_buckets",
			Help: "Number of client rate limit buckets",
		},
	)

	knowledgeConcepts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_knowledge_concepts",
			Help: "Concepts in the loaded knowledge base",
		},
	)

	knowledgeReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_knowledge_reloads_total",
			Help: "Knowledge base reload attempts",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestTotals)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestInFlight)
	prometheus.MustRegister(rateLimiterBuckets)
	prometheus.MustRegister(knowledgeConcepts)
	prometheus.MustRegister(knowledgeReloads)
}

// metricsMiddleware records request counts and latency by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestInFlight.Inc()
		defer httpRequestInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestTotals.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
