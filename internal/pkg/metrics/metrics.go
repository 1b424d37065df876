// Package metrics holds the Prometheus collectors shared by the bot and the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unified_bot",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by result.",
		},
		[]string{"operation", "result"},
	)

	interactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unified_bot",
			Subsystem: "discord",
			Name:      "interactions_total",
			Help:      "Total number of Discord interactions handled.",
		},
		[]string{"command"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unified_bot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of dashboard HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unified_bot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of dashboard HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		ledgerOperations,
		interactions,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one ledger operation outcome.
func RecordOperation(operation, result string) {
	ledgerOperations.WithLabelValues(operation, result).Inc()
}

// RecordInteraction counts one handled Discord interaction.
func RecordInteraction(command string) {
	if command == "" {
		command = "unknown"
	}
	interactions.WithLabelValues(command).Inc()
}

// InstrumentHandler wraps a chi handler with HTTP metrics collection.
// Routes are labelled by their chi pattern so path parameters don't explode cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}
