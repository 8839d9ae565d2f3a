package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the HTTP API and the in-memory model.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitsim_http_requests_total",
		Help: "Total number of HTTP requests by route and status code",
	}, []string{"route", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "habitsim_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// modelVectors is the number of vectors in the loaded model (0 when unusable).
	modelVectors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "habitsim_model_vectors",
		Help: "Number of habit vectors in the loaded model",
	})

	modelReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitsim_model_reloads_total",
		Help: "Total number of model reloads by load status",
	}, []string{"status"})

	trainRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitsim_train_runs_total",
		Help: "Total number of training runs by result",
	}, []string{"result"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitsim_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
)

// instrument records request counts and latency labelled by chi route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
