package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/condor/internal/contracts"
)

// Metrics holds the screener's Prometheus collectors
// ⭐ SSOT: 메트릭 정의는 여기서만
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	candidates    *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	dataErrors    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "condor",
			Name:      "candidates_generated_total",
			Help:      "Iron condor candidates emitted by the builder.",
		}, []string{"ticker"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "condor",
			Name:      "rejections_total",
			Help:      "Options or candidates excluded, by stage and reason.",
		}, []string{"stage", "reason"}),
		dataErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "condor",
			Name:      "data_errors_total",
			Help:      "Data errors raised while screening, by stage.",
		}, []string{"stage"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "condor",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "condor",
			Name:      "screen_runs_total",
			Help:      "Completed screening runs by status.",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry (tests, custom exporters)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Generated counts emitted candidates
func (m *Metrics) Generated(ticker string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.candidates.WithLabelValues(ticker).Add(float64(n))
}

// Rejected counts one exclusion
func (m *Metrics) Rejected(stage contracts.Stage, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(stage.ShortName(), reason).Inc()
}

// DataError counts one data error
func (m *Metrics) DataError(stage contracts.Stage) {
	if m == nil {
		return
	}
	m.dataErrors.WithLabelValues(stage.ShortName()).Inc()
}

// ObserveStage records a stage duration
func (m *Metrics) ObserveStage(stage contracts.Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage.ShortName()).Observe(d.Seconds())
}

// RunFinished counts a run as "success" or "failure"
func (m *Metrics) RunFinished(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.runs.WithLabelValues(status).Inc()
}
