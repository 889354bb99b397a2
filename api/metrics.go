package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/warp/overtime-engine/overtime"
)

// Analysis sources, used as the "source" label.
const (
	sourceStateless = "stateless"
	sourceWorkspace = "workspace"
	sourceMessage   = "message"
)

// Analysis outcomes, used as the "outcome" label.
const (
	outcomeOK         = "ok"
	outcomeError      = "error"
	outcomeSuperseded = "superseded"
)

// Metrics owns a private registry so several handlers can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	analyses      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	entries       prometheus.Counter
	overtimeHours prometheus.Counter
	workers       prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overtime",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overtime",
			Name:      "analyses_total",
			Help:      "Analyses by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "overtime",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"source"}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overtime",
			Name:      "entries_analyzed_total",
			Help:      "Time entries submitted to successful analyses.",
		}),
		overtimeHours: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overtime",
			Name:      "overtime_hours_total",
			Help:      "Overtime hours found by successful analyses.",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overtime",
			Name:      "workspace_workers",
			Help:      "Running per-workspace workers.",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.analyses, m.duration, m.entries, m.overtimeHours, m.workers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observe records one finished analysis. results is nil unless it succeeded.
func (m *Metrics) observe(source, outcome string, elapsed time.Duration, entries int, results []overtime.UserAnalysisResult) {
	m.analyses.WithLabelValues(source, outcome).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
	if outcome != outcomeOK {
		return
	}
	m.entries.Add(float64(entries))
	for _, r := range results {
		f, _ := r.Totals.Overtime.Float64()
		if f > 0 {
			m.overtimeHours.Add(f)
		}
	}
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}
