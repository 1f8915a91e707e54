// Package metrics holds the Prometheus collectors shared by the suggestion
// control and the search backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
	OutcomeStale       = "stale"
	OutcomeSkipped     = "skipped"
)

var (
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "typeahead",
			Name:      "lookups_total",
			Help:      "Suggestion lookups by outcome",
		},
		[]string{"kind", "outcome"}, // kind: "remote" / "prefetch"
	)

	LookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "typeahead",
			Name:      "lookup_duration_seconds",
			Help:      "Suggestion lookup round trip in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "typeahead",
			Name:      "backend_requests_total",
			Help:      "Search backend HTTP requests",
		},
		[]string{"route", "status"},
	)

	backendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "typeahead",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(LookupDuration)
	prometheus.MustRegister(backendRequestsTotal)
	prometheus.MustRegister(backendRequestDuration)
}

// ObserveLookup records one finished lookup.
func ObserveLookup(kind, outcome string, elapsed time.Duration) {
	LookupsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeSkipped {
		LookupDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// Middleware records backend request count and duration keyed by chi route pattern.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			route := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			backendRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			backendRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.status)).Inc()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
