// Package metrics exposes Prometheus counters for pipeline runs, downstream
// propagation and HTTP traffic.
package metrics

import (
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radiograb/internal/pipeline"
)

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	PipelineRuns        *prometheus.CounterVec
	StageFailures       *prometheus.CounterVec
	PropagationFailures *prometheus.CounterVec
	RecordingsStarted   *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RequestTotal        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiograb_pipeline_runs_total",
				Help: "Show create/edit submissions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiograb_pipeline_stage_failures_total",
				Help: "Rejected submissions by the stage that rejected them",
			},
			[]string{"stage"},
		),
		PropagationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiograb_propagation_failures_total",
				Help: "Downstream notifications that failed after a commit",
			},
			[]string{"collaborator"},
		),
		RecordingsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiograb_recordings_started_total",
				Help: "Recording jobs fired by the scheduler by result",
			},
			[]string{"result"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "radiograb_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		RequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiograb_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
	reg.MustRegister(
		m.PipelineRuns,
		m.StageFailures,
		m.PropagationFailures,
		m.RecordingsStarted,
		m.RequestDuration,
		m.RequestTotal,
	)
	return m
}

// RunFinished implements pipeline.Observer
func (m *Metrics) RunFinished(res *pipeline.Result) {
	if m == nil {
		return
	}
	outcome := "success"
	if !res.Success {
		outcome = "failed"
		m.StageFailures.WithLabelValues(string(res.FailedIn)).Inc()
	}
	m.PipelineRuns.WithLabelValues(string(res.Mode), outcome).Inc()
}

// PropagationFailed implements pipeline.Observer
func (m *Metrics) PropagationFailed(collaborator string) {
	if m == nil {
		return
	}
	m.PropagationFailures.WithLabelValues(collaborator).Inc()
}

// RecordingStarted counts one fired recording job
func (m *Metrics) RecordingStarted(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RecordingsStarted.WithLabelValues(result).Inc()
}

var numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)

// NormalizePath replaces numeric path segments with {id}: /shows/12 -> /shows/{id}
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request
func (m *Metrics) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	m.RequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.RequestTotal.WithLabelValues(method, path, status).Inc()
}

var _ pipeline.Observer = (*Metrics)(nil)
