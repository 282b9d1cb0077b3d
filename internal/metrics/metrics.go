// Package metrics provides Prometheus metrics for document processing
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fattura"

// Metrics holds the processing collectors. A nil *Metrics records nothing.
type Metrics struct {
	DetectionsTotal        *prometheus.CounterVec
	DetectionFailuresTotal *prometheus.CounterVec
	ValidationsTotal       *prometheus.CounterVec
	EngineDuration         *prometheus.HistogramVec
	RendersTotal           *prometheus.CounterVec
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DetectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detections_total",
				Help:      "Documents classified, by sub-type and the phase that decided",
			},
			[]string{"subtype", "phase"},
		),
		DetectionFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detection_failures_total",
				Help:      "Detections that ended in an error",
			},
			[]string{"reason"},
		),
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Schema validations, by schema and verdict",
			},
			[]string{"schema", "verdict"},
		),
		EngineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "engine_duration_seconds",
				Help:      "Duration of external engine runs in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"engine"},
		),
		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Renderings, by output format and status",
			},
			[]string{"format", "status"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by route and status code",
			},
			[]string{"route", "code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// RecordDetection records a successful classification
func (m *Metrics) RecordDetection(subType, phase string) {
	if m == nil {
		return
	}
	m.DetectionsTotal.WithLabelValues(subType, phase).Inc()
}

// RecordDetectionFailure records a failed classification
func (m *Metrics) RecordDetectionFailure(reason string) {
	if m == nil {
		return
	}
	m.DetectionFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordValidation records a validation verdict
func (m *Metrics) RecordValidation(schema, verdict string) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(schema, verdict).Inc()
}

// ObserveEngine records how long an engine run took
func (m *Metrics) ObserveEngine(engine string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EngineDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordRender records a rendering outcome
func (m *Metrics) RecordRender(format string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RendersTotal.WithLabelValues(format, status).Inc()
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(route, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, code).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
