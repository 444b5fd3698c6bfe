// Package metrics defines the Prometheus collectors for pipeline runs, grading
// and the HTTP surface, and exposes the scrape handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	PipelineRunsTotal    *prometheus.CounterVec
	PipelineRunDuration  prometheus.Histogram
	StageDuration        *prometheus.HistogramVec
	IngestItemsTotal     *prometheus.CounterVec
	GradesTotal          *prometheus.CounterVec
	SearchCacheTotal     *prometheus.CounterVec
	ActiveStreams        prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PipelineRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Pipeline runs by terminal stage.",
			},
			[]string{"stage"},
		),
		PipelineRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_run_duration_seconds",
				Help:    "Wall time of a pipeline run.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Wall time of a pipeline stage by outcome.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"stage", "ok"},
		),
		IngestItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_ingest_items_total",
				Help: "Sources ingested by outcome.",
			},
			[]string{"ok"},
		),
		GradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grades_total",
				Help: "Graded answers by question type and correctness.",
			},
			[]string{"type", "correct"},
		),
		SearchCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_cache_total",
				Help: "Search cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		ActiveStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_active_streams",
				Help: "Pipeline event streams currently attached.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PipelineRunsTotal,
		m.PipelineRunDuration,
		m.StageDuration,
		m.IngestItemsTotal,
		m.GradesTotal,
		m.SearchCacheTotal,
		m.ActiveStreams,
	)
	return m
}

func (m *Metrics) StageFinished(stage model.Stage, ok bool, elapsed time.Duration) {
	m.StageDuration.WithLabelValues(string(stage), strconv.FormatBool(ok)).Observe(elapsed.Seconds())
}

func (m *Metrics) ItemFinished(ok bool) {
	m.IngestItemsTotal.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) RunFinished(stage model.Stage, elapsed time.Duration) {
	m.PipelineRunsTotal.WithLabelValues(string(stage)).Inc()
	m.PipelineRunDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Graded(t model.QuestionType, correct bool) {
	m.GradesTotal.WithLabelValues(string(t), strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) SearchCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCacheTotal.WithLabelValues(result).Inc()
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// TrackStream counts an open event stream until the returned func is called
func (m *Metrics) TrackStream() func() {
	m.ActiveStreams.Inc()
	return m.ActiveStreams.Dec
}
