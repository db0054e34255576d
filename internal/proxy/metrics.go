package proxy

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests counts served requests by route pattern and status code.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dustvault_proxy_requests_total",
			Help: "Proxy requests by route and status",
		},
		[]string{"route", "status"},
	)

	// Latency tracks handler duration by route pattern.
	Latency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dustvault_proxy_request_duration_seconds",
			Help:    "Proxy request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// UpstreamFailures counts quote requests that failed before a JSON
	// answer came back.
	UpstreamFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dustvault_proxy_upstream_failures_total",
		Help: "Upstream quote calls that failed or returned non-JSON",
	})

	// RateLimited counts requests refused by the per-client limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dustvault_proxy_rate_limited_total",
		Help: "Requests refused with 429",
	})
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records Requests and Latency. It must run inside the chi router
// so the matched route pattern is available after next returns.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		Requests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		Latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
